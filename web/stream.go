package web

import (
	"math"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mogaika/scene_interop/scene"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	minPeriod  = time.Millisecond
)

// framePeriod converts a frame rate to a ticker period of at least minPeriod.
func framePeriod(fps float64) time.Duration {
	if !(fps > 0) {
		return time.Second
	}
	period := time.Duration(float64(time.Second) / fps)
	if period < minPeriod {
		return minPeriod
	}
	return period
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// poseStream pushes poses of one animation to a websocket client.
type poseStream struct {
	conn   *websocket.Conn
	log    *zap.Logger
	scene  *scene.Scene
	anim   *scene.Animation
	eval   *scene.Evaluator
	period time.Duration
	limit  time.Duration
	// loop length in seconds, zero for single frame animations
	length float64
}

// streamTime maps wall clock time since start onto the animation loop.
func streamTime(elapsed time.Duration, length float64) float64 {
	if length <= 0 {
		return 0
	}
	return math.Mod(elapsed.Seconds(), length)
}

// readPump drains control frames and reports when the peer goes away.
func (ps *poseStream) readPump(done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := ps.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (ps *poseStream) writePump() {
	frames := time.NewTicker(ps.period)
	ping := time.NewTicker(pingPeriod)
	done := make(chan struct{})
	defer func() {
		frames.Stop()
		ping.Stop()
		ps.conn.Close()
	}()
	go ps.readPump(done)

	start := time.Now()
	if !ps.send(0) {
		return
	}
	for {
		select {
		case <-done:
			ps.log.Debug("Client left")
			return
		case now := <-frames.C:
			elapsed := now.Sub(start)
			if ps.limit > 0 && elapsed >= ps.limit {
				ps.conn.SetWriteDeadline(time.Now().Add(writeWait))
				ps.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stream limit"))
				ps.log.Debug("Stream limit reached", zap.Duration("elapsed", elapsed))
				return
			}
			if !ps.send(streamTime(elapsed, ps.length)) {
				return
			}
		case <-ping.C:
			ps.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ps.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				ps.log.Warn("ws write ping error", zap.Error(err))
				return
			}
		}
	}
}

func (ps *poseStream) send(seconds float64) bool {
	ps.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := ps.conn.WriteJSON(newPoseResponse(ps.anim, ps.eval.Pose(ps.scene, seconds))); err != nil {
		ps.log.Warn("ws write pose error", zap.Error(err))
		return false
	}
	return true
}

func (s *Server) HandlerStream(w http.ResponseWriter, r *http.Request) {
	sc, anim, err := s.animation(r)
	if err != nil {
		s.writeSceneError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader already replied
		s.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	def := s.cfg.Animation.DefaultTicksPerSecond
	ps := &poseStream{
		conn:   conn,
		log:    s.log.With(zap.String("scene", sc.Name), zap.String("animation", anim.Name)),
		scene:  sc,
		anim:   anim,
		eval:   scene.NewEvaluator(anim, def),
		period: framePeriod(s.cfg.Server.StreamFPS),
		limit:  s.cfg.Server.StreamLimit,
		length: anim.DurationSeconds(def),
	}
	ps.log.Debug("Streaming poses", zap.Duration("period", ps.period))
	go ps.writePump()
}

package bus

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// PeerConfig describes the remote event endpoint of a sibling instance.
type PeerConfig struct {
	// URL is the ws:// or wss:// address of the peer's /ws/events endpoint.
	URL string
	// Token is sent as a bearer credential during the handshake.
	Token string
	// BaseDelay seeds the reconnect backoff. Defaults to 2 seconds.
	BaseDelay time.Duration
	// MaxAttempts caps consecutive failed dials; once exceeded the link
	// stays down until Connect is called again. Defaults to 6.
	MaxAttempts int
}

// Peer maintains a websocket link to another instance, exchanging events and
// presence. Dials are retried with doubling backoff up to MaxAttempts.
type Peer struct {
	cfg    PeerConfig
	bus    *Bus
	log    *logrus.Logger
	peerID string

	mu      sync.Mutex
	conn    *websocket.Conn
	stop    chan struct{}
	running bool
}

func NewPeer(cfg PeerConfig, b *Bus, log *logrus.Logger) *Peer {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 2 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 6
	}
	return &Peer{
		cfg:    cfg,
		bus:    b,
		log:    log,
		peerID: uuid.NewString(),
	}
}

// Connect starts (or restarts) the link. It returns immediately; dialing and
// reconnection happen in the background.
func (p *Peer) Connect(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.stop = make(chan struct{})
	stop := p.stop
	p.mu.Unlock()

	go p.run(ctx, stop)
}

func (p *Peer) run(ctx context.Context, stop chan struct{}) {
	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	attempts := 0
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		conn, err := p.dial(ctx)
		if err != nil {
			attempts++
			if attempts > p.cfg.MaxAttempts {
				p.log.WithError(err).WithField("peer", p.cfg.URL).
					Warn("peer link gave up, waiting for explicit reconnect")
				return
			}
			delay := p.cfg.BaseDelay << (attempts - 1)
			p.log.WithError(err).WithFields(logrus.Fields{
				"peer": p.cfg.URL, "attempt": attempts, "retry_in": delay,
			}).Info("peer dial failed")
			select {
			case <-time.After(delay):
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
			continue
		}
		attempts = 0

		p.mu.Lock()
		p.conn = conn
		p.mu.Unlock()

		p.bus.Publish(EventPeerJoined, "", map[string]string{"peer_id": p.peerID, "url": p.cfg.URL})
		unsubscribe := p.bus.Subscribe(p.forward)
		p.readLoop(conn)
		unsubscribe()
		p.bus.Publish(EventPeerLeft, "", map[string]string{"peer_id": p.peerID, "url": p.cfg.URL})

		p.mu.Lock()
		p.conn = nil
		p.mu.Unlock()
	}
}

func (p *Peer) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	header := http.Header{}
	if p.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+p.cfg.Token)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, p.cfg.URL, header)
	return conn, err
}

// forward pushes locally-originated events over the link.
func (p *Peer) forward(evt Event) {
	if evt.Origin != p.bus.Origin() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return
	}
	if err := p.conn.WriteJSON(evt); err != nil {
		p.log.WithError(err).Debug("peer write failed")
	}
}

func (p *Peer) readLoop(conn *websocket.Conn) {
	for {
		var evt Event
		if err := conn.ReadJSON(&evt); err != nil {
			p.log.WithError(err).WithField("peer", p.cfg.URL).Info("peer link closed")
			return
		}
		if evt.Origin == p.bus.Origin() {
			continue
		}
		p.bus.Inject(evt)
	}
}

// Close tears the link down and stops reconnecting.
func (p *Peer) Close() {
	p.mu.Lock()
	if p.stop != nil {
		select {
		case <-p.stop:
		default:
			close(p.stop)
		}
	}
	conn := p.conn
	p.conn = nil
	p.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
}

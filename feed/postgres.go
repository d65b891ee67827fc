package feed

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/lib/pq"

	"github.com/meinhoongagan/tutor-sessions/store"
)

// Postgres relays changes through NOTIFY/LISTEN on the database that holds
// the records, so every instance sharing the database sees every write.
type Postgres struct {
	db       *sql.DB
	listener *pq.Listener
	local    *Local
	stop     context.CancelFunc
}

var _ Bus = (*Postgres)(nil)

// NewPostgres publishes through db and listens on a dedicated connection
// opened from dsn.
func NewPostgres(db *sql.DB, dsn string) (*Postgres, error) {
	listener := pq.NewListener(dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Warnf("feed: postgres listener event %d: %v", ev, err)
		}
	})
	for _, e := range entities {
		if err := listener.Listen(channelFor(e)); err != nil {
			listener.Close()
			return nil, err
		}
	}

	ctx, stop := context.WithCancel(context.Background())
	p := &Postgres{db: db, listener: listener, local: NewLocal(), stop: stop}
	go p.run(ctx)
	return p, nil
}

func (p *Postgres) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-p.listener.Notify:
			if !ok {
				return
			}
			// nil after a reconnect; missed changes are recovered by clients
			// re-reading the record
			if n == nil {
				continue
			}
			c, err := decode([]byte(n.Extra))
			if err != nil {
				log.Warnf("feed: dropping notification on %s: %v", n.Channel, err)
				continue
			}
			_ = p.local.Publish(ctx, c)
		case <-time.After(90 * time.Second):
			go func() {
				if err := p.listener.Ping(); err != nil {
					log.Warnf("feed: postgres listener ping: %v", err)
				}
			}()
		}
	}
}

func (p *Postgres) Publish(ctx context.Context, c store.Change) error {
	payload, err := encode(c)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, "SELECT pg_notify($1, $2)", channelFor(c.Entity), string(payload))
	return err
}

func (p *Postgres) Subscribe(ctx context.Context, f store.Filter, onChange func(store.Change)) (func(), error) {
	return p.local.Subscribe(ctx, f, onChange)
}

func (p *Postgres) Close() error {
	p.stop()
	p.local.Close()
	return p.listener.Close()
}

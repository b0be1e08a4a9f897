package main

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/streadway/amqp"

	"github.com/unclebandit/mailpacer-backend/internal/config"
	"github.com/unclebandit/mailpacer-backend/internal/progress"
	"github.com/unclebandit/mailpacer-backend/internal/queue"
)

// tracker aggregates relayed progress events per session so the worker can
// log one summary line per run.
type tracker struct {
	mu   sync.Mutex
	runs map[string]*runTotals
}

type runTotals struct {
	CampaignID string
	Total      int
	Sent       int
	Failed     int
	Done       bool
}

func newTracker() *tracker {
	return &tracker{runs: make(map[string]*runTotals)}
}

// apply folds one envelope into the per-session totals and reports whether
// the run just completed.
func (t *tracker) apply(env queue.Envelope) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	run, ok := t.runs[env.SessionID]
	if !ok {
		run = &runTotals{CampaignID: env.CampaignID}
		t.runs[env.SessionID] = run
	}

	switch env.Event.Type {
	case progress.TypeStart:
		run.Total = env.Event.Total
	case progress.TypeProgress:
		run.Sent = env.Event.Sent
		run.Failed = env.Event.Failed
	case progress.TypeComplete:
		run.Total = env.Event.Total
		run.Sent = env.Event.Sent
		run.Failed = env.Event.Failed
		run.Done = true
	}

	return run.Done
}

func (t *tracker) get(sessionID string) runTotals {
	t.mu.Lock()
	defer t.mu.Unlock()

	if run, ok := t.runs[sessionID]; ok {
		return *run
	}
	return runTotals{}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config:", err)
	}
	if cfg.AMQPURL == "" {
		log.Fatal("AMQP_URL is required for the progress worker")
	}

	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ:", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatal("Failed to open a channel:", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		queue.ProgressQueue, // name
		true,                // durable
		false,               // delete when unused
		false,               // exclusive
		false,               // no-wait
		nil,                 // arguments
	)
	if err != nil {
		log.Fatal("Failed to declare queue:", err)
	}

	msgs, err := ch.Consume(
		q.Name,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		log.Fatal("Failed to register consumer:", err)
	}

	tr := newTracker()
	forever := make(chan bool)

	go func() {
		for d := range msgs {
			var env queue.Envelope
			if err := json.Unmarshal(d.Body, &env); err != nil {
				log.Println("Invalid progress envelope:", err)
				d.Ack(false)
				continue
			}

			if tr.apply(env) {
				run := tr.get(env.SessionID)
				log.Printf("🏁 Run %s finished: %d/%d sent, %d failed (campaign %s)",
					env.SessionID, run.Sent, run.Total, run.Failed, run.CampaignID)
			} else if env.Event.Type == progress.TypeProgress {
				log.Printf("📩 Run %s: %d/%d attempted", env.SessionID, env.Event.Sent+env.Event.Failed, env.Event.Total)
			}

			d.Ack(false)
		}
	}()

	log.Println("Worker running, waiting for progress events...")
	<-forever
}

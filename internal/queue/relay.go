package queue

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/streadway/amqp"

	"github.com/unclebandit/mailpacer-backend/internal/progress"
)

// ProgressQueue is the RabbitMQ queue carrying relayed progress events.
const ProgressQueue = "campaign_progress"

// Envelope wraps one progress event with its run identity for consumers
// that follow multiple sessions at once.
type Envelope struct {
	SessionID  string         `json:"session_id"`
	CampaignID string         `json:"campaign_id,omitempty"`
	Event      progress.Event `json:"event"`
}

// ProgressRelay republishes a session's progress events to RabbitMQ so
// consumers without a streaming connection (the bot integration) can follow
// delivery runs.
type ProgressRelay struct {
	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// DialProgressRelay connects to RabbitMQ and declares the progress queue.
func DialProgressRelay(url string) (*ProgressRelay, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	_, err = ch.QueueDeclare(
		ProgressQueue, // name
		true,          // durable
		false,         // delete when unused
		false,         // exclusive
		false,         // no-wait
		nil,           // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &ProgressRelay{conn: conn, ch: ch}, nil
}

// Bind subscribes to the session's progress stream and republishes every
// event until the session is cleaned up. Pings are not relayed; the queue
// needs no keep-alive. Publish failures are logged and never reach the run.
func (r *ProgressRelay) Bind(hub *progress.Hub, sessionID, campaignID string) {
	events := hub.Subscribe(sessionID)

	go func() {
		for ev := range events {
			if ev.Type == progress.TypePing {
				continue
			}

			body, err := json.Marshal(Envelope{
				SessionID:  sessionID,
				CampaignID: campaignID,
				Event:      ev,
			})
			if err != nil {
				log.Println("⚠️ Failed to marshal progress event:", err)
				continue
			}

			r.mu.Lock()
			err = r.ch.Publish(
				"",            // exchange
				ProgressQueue, // routing key
				false,         // mandatory
				false,         // immediate
				amqp.Publishing{
					ContentType: "application/json",
					Body:        body,
				},
			)
			r.mu.Unlock()
			if err != nil {
				log.Println("⚠️ Failed to relay progress event:", err)
			}
		}
	}()
}

func (r *ProgressRelay) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ch.Close()
	r.conn.Close()
}

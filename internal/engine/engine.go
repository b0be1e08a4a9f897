// internal/engine/engine.go
package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/unclebandit/mailpacer-backend/internal/mailer"
	"github.com/unclebandit/mailpacer-backend/internal/model"
	"github.com/unclebandit/mailpacer-backend/internal/progress"
	"github.com/unclebandit/mailpacer-backend/internal/template"
)

// StepFilter decides whether a contact receives a given step. The base
// implementation allows everyone; response/unsubscribe detection slots in
// here without touching the delivery loop.
type StepFilter interface {
	Allow(campaignID string, contact model.Contact, step model.Step) bool
}

type allowAll struct{}

func (allowAll) Allow(string, model.Contact, model.Step) bool { return true }

// AllowAll returns the default filter, which skips nobody.
func AllowAll() StepFilter { return allowAll{} }

// Engine executes delivery runs: one step against one ordered contact list,
// one send at a time, with a fixed pause between sends. Sends within a run
// are strictly sequential so the pacing delay is honored and provider load
// stays constant regardless of list size. Independent runs may overlap; the
// shared Mailer must tolerate concurrent use.
type Engine struct {
	Mailer      mailer.Sender
	Hub         *progress.Hub
	Delay       time.Duration // pause between consecutive sends
	Retention   time.Duration // how long a finished session keeps subscriber state
	DefaultName string        // display-name fallback for blank contacts
	FromName    string
	Filter      StepFilter // nil means allow all
}

// Run delivers step to the contacts in list order and returns the run
// summary. It emits the session's full event sequence and never fails once
// started: a contact whose send errors is recorded as failed and the run
// moves on. ctx is consulted only between contacts, never mid-send.
func (e *Engine) Run(ctx context.Context, sessionID, campaignID string, step model.Step, list []model.Contact) model.Summary {
	filter := e.Filter
	if filter == nil {
		filter = AllowAll()
	}

	// Filter up front so the announced total matches what the run attempts.
	recipients := make([]model.Contact, 0, len(list))
	for _, c := range list {
		if filter.Allow(campaignID, c, step) {
			recipients = append(recipients, c)
		}
	}

	summary := model.Summary{Total: len(recipients)}

	e.Hub.Publish(sessionID, progress.Event{
		Type:    progress.TypeStart,
		Total:   summary.Total,
		Message: fmt.Sprintf("Starting delivery of %d emails with %s pause between sends", summary.Total, e.Delay),
	})

	for i, contact := range recipients {
		log.Printf("📤 Sending email %d/%d to %s", i+1, summary.Total, contact.Email)

		rendered := template.Render(step.Subject, step.Body, contact.Name, e.DefaultName)
		err := e.Mailer.Send(ctx, mailer.Message{
			To:       contact.Email,
			Subject:  rendered.Subject,
			Text:     rendered.Text,
			HTML:     rendered.HTML,
			FromName: e.FromName,
		})

		result := model.DeliveryResult{
			Email:     contact.Email,
			Name:      contact.Name,
			Timestamp: time.Now(),
		}
		ev := progress.Event{
			Type:         progress.TypeProgress,
			Total:        summary.Total,
			Processed:    i + 1,
			CurrentEmail: contact.Email,
			CurrentName:  contact.Name,
		}

		if err != nil {
			log.Printf("❌ Failed to send email to %s: %v", contact.Email, err)
			summary.Failed++
			result.Status = model.DeliveryFailed
			result.Error = err.Error()
			ev.Status = model.DeliveryFailed
			ev.Error = err.Error()
			ev.Message = fmt.Sprintf("Failed: %s - %s", contact.Email, err.Error())
		} else {
			log.Printf("✅ Email sent successfully to %s", contact.Email)
			summary.Sent++
			result.Status = model.DeliverySent
			ev.Status = model.DeliverySent
			ev.Message = fmt.Sprintf("Email sent successfully to %s", contact.Email)
		}

		summary.Details = append(summary.Details, result)
		ev.Sent = summary.Sent
		ev.Failed = summary.Failed
		e.Hub.Publish(sessionID, ev)

		if i == len(recipients)-1 {
			break
		}

		e.Hub.Publish(sessionID, progress.Event{
			Type:        progress.TypeWaiting,
			WaitSeconds: int(e.Delay.Seconds()),
			Message:     fmt.Sprintf("Waiting %s before next email...", e.Delay),
		})

		select {
		case <-time.After(e.Delay):
		case <-ctx.Done():
			log.Printf("⚠️ Delivery run %s stopped early: %v", sessionID, ctx.Err())
			return e.complete(sessionID, summary)
		}
	}

	return e.complete(sessionID, summary)
}

func (e *Engine) complete(sessionID string, summary model.Summary) model.Summary {
	log.Printf("🎉 Email sending completed. Sent: %d, Failed: %d", summary.Sent, summary.Failed)

	e.Hub.Publish(sessionID, progress.Event{
		Type:    progress.TypeComplete,
		Total:   summary.Total,
		Sent:    summary.Sent,
		Failed:  summary.Failed,
		Results: &summary,
		Message: fmt.Sprintf("Delivery complete! %d/%d emails sent successfully.", summary.Sent, summary.Total),
	})

	// Subscriber state is retained for a fixed window after completion.
	time.AfterFunc(e.Retention, func() {
		e.Hub.CloseSession(sessionID)
	})

	return summary
}

// cmd/server/main.go
package main

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/mailpacer-backend/internal/config"
	"github.com/unclebandit/mailpacer-backend/internal/controller"
	"github.com/unclebandit/mailpacer-backend/internal/db"
	"github.com/unclebandit/mailpacer-backend/internal/engine"
	"github.com/unclebandit/mailpacer-backend/internal/handler"
	"github.com/unclebandit/mailpacer-backend/internal/mailer"
	"github.com/unclebandit/mailpacer-backend/internal/progress"
	"github.com/unclebandit/mailpacer-backend/internal/queue"
	"github.com/unclebandit/mailpacer-backend/internal/repository"
	"github.com/unclebandit/mailpacer-backend/internal/scheduler"
	"github.com/unclebandit/mailpacer-backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	// Init DB
	db.Init(cfg)

	campaignRepo := &repository.CampaignRepository{DB: db.DB}
	deliveryRepo := &repository.DeliveryRepository{DB: db.DB}

	// One mail transport for the whole process; runs share it concurrently.
	var sender mailer.Sender
	if cfg.EmailConfigured() {
		sender = mailer.NewResendSender(cfg.ResendAPIKey, cfg.EmailFrom)
		log.Println("✅ Email configured for:", cfg.EmailFrom)
	} else {
		sender = mailer.NewLogSender()
		log.Println("⚠️ Email not configured yet - using dev log sender")
	}

	hub := progress.NewHub(cfg.KeepAliveInterval)

	eng := &engine.Engine{
		Mailer:      sender,
		Hub:         hub,
		Delay:       cfg.SendDelay,
		Retention:   cfg.SessionRetention,
		DefaultName: cfg.DefaultRecipientName,
		FromName:    cfg.EmailFromName,
	}

	campaignService := &service.CampaignService{
		CampaignRepo: campaignRepo,
		DeliveryRepo: deliveryRepo,
		Engine:       eng,
		Hub:          hub,
	}
	campaignService.Scheduler = scheduler.New(scheduler.RealClock(), campaignService.RunStep)

	if cfg.AMQPURL != "" {
		relay, err := queue.DialProgressRelay(cfg.AMQPURL)
		if err != nil {
			log.Println("⚠️ Progress relay disabled:", err)
		} else {
			defer relay.Close()
			campaignService.Relay = relay
			log.Println("✅ Progress relay connected to RabbitMQ")
		}
	}

	campaignController := &controller.CampaignController{
		CampaignService: campaignService,
	}
	progressHandler := handler.NewProgressHandler(hub, campaignService, cfg)

	r := chi.NewRouter()

	// Campaign routes
	r.Post("/campaigns", campaignController.CreateCampaign)
	r.Get("/campaigns", campaignController.ListCampaigns)
	r.Get("/campaigns/{id}", campaignController.GetCampaignDetails)
	r.Put("/campaigns/{id}", campaignController.UpdateCampaign)
	r.Delete("/campaigns/{id}", campaignController.DeleteCampaign)
	r.Post("/campaigns/{id}/launch", campaignController.LaunchCampaign)

	// Ad-hoc sending + contact upload
	r.Post("/send-emails", campaignController.SendEmails)
	r.Post("/contacts/upload", campaignController.UploadContacts)

	// Progress + status
	r.Get("/progress/{sessionID}", progressHandler.Stream)
	r.Get("/test", progressHandler.Test)
	r.Get("/test-email", progressHandler.TestEmail)

	// Bot integration
	r.Get("/bot/status", progressHandler.BotStatus)
	r.Get("/bot/campaigns", progressHandler.BotCampaigns)
	r.Get("/bot/analytics", progressHandler.BotAnalytics)
	r.Post("/bot/launch-campaign", progressHandler.BotLaunchCampaign)

	log.Println("🚀 Server running on :" + cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, r))
}

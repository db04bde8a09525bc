// cmd/server/main.go
package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/leadloop/outreach-backend/internal/clock"
	"github.com/leadloop/outreach-backend/internal/config"
	"github.com/leadloop/outreach-backend/internal/controller"
	"github.com/leadloop/outreach-backend/internal/db"
	"github.com/leadloop/outreach-backend/internal/handler"
	"github.com/leadloop/outreach-backend/internal/logger"
	"github.com/leadloop/outreach-backend/internal/queue"
	"github.com/leadloop/outreach-backend/internal/repository"
	"github.com/leadloop/outreach-backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Get().WithError(err).Fatal("could not load configuration")
	}
	logger.Init(cfg)
	log := logger.Get()

	conn, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("could not connect to database")
	}
	defer conn.Close()

	contactRepo := &repository.ContactRepository{DB: conn}
	touchRepo := &repository.TouchRepository{DB: conn}
	leadRepo := &repository.LeadRepository{DB: conn}
	auditRepo := &repository.AuditRepository{DB: conn}
	templateRepo := &repository.TemplateRepository{DB: conn}

	q := queue.NewInMemoryQueue()

	outreachService := &service.OutreachService{
		ContactRepo:  contactRepo,
		TouchRepo:    touchRepo,
		LeadRepo:     leadRepo,
		AuditRepo:    auditRepo,
		TemplateRepo: templateRepo,
		Queue:        q,
		Clock:        clock.System(),
		Log:          log,
		Config:       service.ConfigFromApp(cfg),
	}
	queue.StartQueueRefreshSubscriber(q, outreachService.DueCount, log)

	outreachController := &controller.OutreachController{
		Service: outreachService,
		AMQPURL: cfg.AMQPURL,
	}
	queueHandler := handler.NewQueueHandler(outreachService)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Lead routes
	r.Post("/leads", outreachController.CreateLead)
	r.Get("/leads", outreachController.ListLeads)
	r.Delete("/leads/{id}", outreachController.DeleteLead)
	r.Post("/leads/{id}/contacts", outreachController.CreateContact)

	// Contact routes
	r.Get("/contacts", outreachController.ListContacts)
	r.Get("/contacts/{id}", outreachController.GetContact)
	r.Post("/contacts/{id}/invite", outreachController.SetInvite)
	r.Post("/contacts/{id}/response", outreachController.RecordResponse)
	r.Post("/contacts/{id}/remove", outreachController.RemoveContact)

	// Touch routes
	r.Post("/touches/{id}/send", outreachController.SendTouch)
	r.Post("/touches/{id}/complete", outreachController.CompleteTouch)

	// Queue views
	r.Get("/queue/today", queueHandler.TodayHandler)
	r.Get("/queue/stats", queueHandler.StatsHandler)
	r.Post("/queue/sweep", outreachController.SweepQueue)

	// Templates
	r.Post("/templates", outreachController.CreateTemplate)
	r.Get("/templates", outreachController.ListTemplates)
	r.Delete("/templates/{id}", outreachController.DeleteTemplate)
	r.Post("/templates/{id}/preview", outreachController.PreviewTemplate)

	// Activity feed
	r.Get("/activity", outreachController.ListActivity)

	log.WithField("addr", cfg.HTTPAddr).Info("server listening")
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}

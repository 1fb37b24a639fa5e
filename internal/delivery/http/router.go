package http

import (
	"net/http"

	"pharmacy-backend/internal/delivery/http/handler"
	"pharmacy-backend/internal/delivery/http/middleware"

	"github.com/gorilla/mux"
)

type Router struct {
	router              *mux.Router
	authHandler         *handler.AuthHandler
	consultationHandler *handler.ConsultationHandler
	messageHandler      *handler.MessageHandler
	streamHandler       *handler.StreamHandler
	doctorHandler       *handler.DoctorHandler
	medicationHandler   *handler.MedicationHandler
	deviceHandler       *handler.DeviceHandler
	auditLogHandler     *handler.AuditLogHandler
	itemHandler         *handler.ItemHandler
	authMiddleware      *middleware.AuthMiddleware
	corsMiddleware      *middleware.CORSMiddleware
	loggerMiddleware    *middleware.LoggerMiddleware
}

func NewRouter(
	authHandler *handler.AuthHandler,
	consultationHandler *handler.ConsultationHandler,
	messageHandler *handler.MessageHandler,
	streamHandler *handler.StreamHandler,
	doctorHandler *handler.DoctorHandler,
	medicationHandler *handler.MedicationHandler,
	deviceHandler *handler.DeviceHandler,
	auditLogHandler *handler.AuditLogHandler,
	itemHandler *handler.ItemHandler,
	authMiddleware *middleware.AuthMiddleware,
	corsMiddleware *middleware.CORSMiddleware,
	loggerMiddleware *middleware.LoggerMiddleware,
) *Router {
	return &Router{
		router:              mux.NewRouter(),
		authHandler:         authHandler,
		consultationHandler: consultationHandler,
		messageHandler:      messageHandler,
		streamHandler:       streamHandler,
		doctorHandler:       doctorHandler,
		medicationHandler:   medicationHandler,
		deviceHandler:       deviceHandler,
		auditLogHandler:     auditLogHandler,
		itemHandler:         itemHandler,
		authMiddleware:      authMiddleware,
		corsMiddleware:      corsMiddleware,
		loggerMiddleware:    loggerMiddleware,
	}
}

func (r *Router) Setup() *mux.Router {
	// Health check (public)
	r.router.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)

	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)

	// Auth routes (public)
	auth := api.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/register", r.authHandler.Register).Methods(http.MethodPost)
	auth.HandleFunc("/login", r.authHandler.Login).Methods(http.MethodPost)

	// Auth routes (protected)
	authProtected := api.PathPrefix("/auth").Subrouter()
	authProtected.Use(r.authMiddleware.Authenticate)
	authProtected.HandleFunc("/logout", r.authHandler.Logout).Methods(http.MethodPost)
	authProtected.HandleFunc("/logout-all", r.authHandler.LogoutAll).Methods(http.MethodPost)
	authProtected.HandleFunc("/me", r.authHandler.GetCurrentUser).Methods(http.MethodGet)

	// Live streams (customer or doctor, token may come from the query string)
	stream := api.PathPrefix("/consultations").Subrouter()
	stream.Use(r.authMiddleware.AuthenticateStream)
	stream.Use(middleware.RequireParticipantRole)
	stream.HandleFunc("/{id}/stream", r.streamHandler.ServeSSE).Methods(http.MethodGet)
	stream.HandleFunc("/{id}/ws", r.streamHandler.ServeWS).Methods(http.MethodGet)

	// Messaging (customer or doctor, gated on participation)
	shared := api.PathPrefix("/consultations").Subrouter()
	shared.Use(r.authMiddleware.Authenticate)
	shared.Use(middleware.RequireParticipantRole)
	shared.HandleFunc("/{id}/messages", r.messageHandler.SendMessage).Methods(http.MethodPost)
	shared.HandleFunc("/{id}/messages", r.messageHandler.GetMessages).Methods(http.MethodGet)
	shared.HandleFunc("/{id}/messages/read", r.messageHandler.MarkRead).Methods(http.MethodPost)
	shared.HandleFunc("/{id}/messages/unread", r.messageHandler.GetUnreadCount).Methods(http.MethodGet)
	shared.HandleFunc("/{id}/typing", r.messageHandler.Typing).Methods(http.MethodPost)

	// Customer routes
	customer := api.PathPrefix("/consultations").Subrouter()
	customer.Use(r.authMiddleware.Authenticate)
	customer.Use(middleware.RequireCustomer)
	customer.HandleFunc("", r.consultationHandler.CreateConsultation).Methods(http.MethodPost)
	customer.HandleFunc("", r.consultationHandler.GetMyConsultations).Methods(http.MethodGet)
	customer.HandleFunc("/{id}", r.consultationHandler.GetConsultation).Methods(http.MethodGet)
	customer.HandleFunc("/{id}/cancel", r.consultationHandler.CancelConsultation).Methods(http.MethodPost)
	customer.HandleFunc("/{id}/rate", r.consultationHandler.RateConsultation).Methods(http.MethodPost)

	medication := api.PathPrefix("/medication-schedules").Subrouter()
	medication.Use(r.authMiddleware.Authenticate)
	medication.Use(middleware.RequireCustomer)
	medication.HandleFunc("", r.medicationHandler.GetMySchedules).Methods(http.MethodGet)
	medication.HandleFunc("/{id}/taken", r.medicationHandler.MarkTaken).Methods(http.MethodPost)

	devices := api.PathPrefix("/devices").Subrouter()
	devices.Use(r.authMiddleware.Authenticate)
	devices.Use(middleware.RequireParticipantRole)
	devices.HandleFunc("", r.deviceHandler.RegisterDevice).Methods(http.MethodPost)

	// Catalogue (any authenticated role)
	items := api.PathPrefix("/items").Subrouter()
	items.Use(r.authMiddleware.Authenticate)
	items.HandleFunc("", r.itemHandler.GetAll).Methods(http.MethodGet)
	items.HandleFunc("/{id}", r.itemHandler.GetByID).Methods(http.MethodGet)

	// Doctor routes
	doctor := api.PathPrefix("/doctor").Subrouter()
	doctor.Use(r.authMiddleware.Authenticate)
	doctor.Use(middleware.RequireDoctor)
	doctor.HandleFunc("/consultations", r.consultationHandler.GetDoctorActiveConsultations).Methods(http.MethodGet)
	doctor.HandleFunc("/consultations/queue", r.consultationHandler.GetBranchQueue).Methods(http.MethodGet)
	doctor.HandleFunc("/consultations/{id}", r.consultationHandler.GetDoctorConsultation).Methods(http.MethodGet)
	doctor.HandleFunc("/consultations/{id}/accept", r.consultationHandler.AcceptConsultation).Methods(http.MethodPost)
	doctor.HandleFunc("/consultations/{id}/complete", r.consultationHandler.CompleteConsultation).Methods(http.MethodPost)
	doctor.HandleFunc("/consultations/{id}/cancel", r.consultationHandler.CancelConsultation).Methods(http.MethodPost)
	doctor.HandleFunc("/consultations/{id}/messages", r.messageHandler.SendMessage).Methods(http.MethodPost)
	doctor.HandleFunc("/consultations/{id}/messages", r.messageHandler.GetMessages).Methods(http.MethodGet)
	doctor.HandleFunc("/consultations/{id}/typing", r.messageHandler.Typing).Methods(http.MethodPost)
	doctor.HandleFunc("/consultations/{id}/medication-schedules", r.medicationHandler.CreateSchedule).Methods(http.MethodPost)
	doctor.HandleFunc("/availability", r.doctorHandler.SetAvailability).Methods(http.MethodPut)
	doctor.HandleFunc("/capacity", r.doctorHandler.GetCapacity).Methods(http.MethodGet)

	// Admin routes (protected - admin only)
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(r.authMiddleware.Authenticate)
	admin.Use(middleware.RequireAdmin)
	admin.HandleFunc("/users", r.authHandler.CreateStaffAccount).Methods(http.MethodPost)
	admin.HandleFunc("/doctors", r.doctorHandler.RegisterDoctor).Methods(http.MethodPost)
	admin.HandleFunc("/branches/{id}/capacity", r.doctorHandler.GetBranchCapacity).Methods(http.MethodGet)
	admin.HandleFunc("/items", r.itemHandler.Create).Methods(http.MethodPost)
	admin.HandleFunc("/items/{id}", r.itemHandler.Update).Methods(http.MethodPut)
	admin.HandleFunc("/items/{id}", r.itemHandler.Delete).Methods(http.MethodDelete)
	admin.HandleFunc("/audit-logs", r.auditLogHandler.GetAllAuditLogs).Methods(http.MethodGet)
	admin.HandleFunc("/audit-logs/{id}", r.auditLogHandler.GetAuditLog).Methods(http.MethodGet)

	// Preflights for every route; the CORS middleware writes the response.
	r.router.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.router.Use(r.loggerMiddleware.Handle)
	r.router.Use(r.corsMiddleware.Handle)

	return r.router
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}

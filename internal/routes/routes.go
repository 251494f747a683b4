package routes

import (
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/croquete1/Fitness-Pro-sub005/internal/config"
	"github.com/croquete1/Fitness-Pro-sub005/internal/handlers"
	"github.com/croquete1/Fitness-Pro-sub005/internal/middleware"
	"github.com/croquete1/Fitness-Pro-sub005/internal/notify"
	"github.com/croquete1/Fitness-Pro-sub005/internal/repository"
	"github.com/croquete1/Fitness-Pro-sub005/internal/services"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool) {
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	availRepo := repository.NewAvailabilityRepository(db)
	dayOffRepo := repository.NewDayOffRepository(db)
	locationRepo := repository.NewLocationRepository(db)

	hub := notify.NewHub()
	go hub.Run()

	bookingService := services.NewBookingService(db, sessionRepo, availRepo, locationRepo, userRepo, hub)
	requestService := services.NewRequestService(db, requestRepo, availRepo, locationRepo, userRepo, hub)
	calendarService := services.NewCalendarService(dayOffRepo, locationRepo)

	schedulingHandler := handlers.NewSchedulingHandler(bookingService)
	requestHandler := handlers.NewRequestHandler(requestService)
	calendarHandler := handlers.NewCalendarHandler(calendarService)
	streamHandler := handlers.NewStreamHandler(hub, cfg.JWTSecret)

	api := app.Group("/api")

	scheduling := api.Group("/v1/scheduling", middleware.AuthRequired(cfg.JWTSecret))

	scheduling.Get("/availability", schedulingHandler.GetAvailability)

	sessions := scheduling.Group("/sessions")
	sessions.Post("", schedulingHandler.CreateSession)
	sessions.Get("", schedulingHandler.ListSessions)
	sessions.Get("/:id", schedulingHandler.GetSession)
	sessions.Put("/:id/status", schedulingHandler.UpdateStatus)

	requests := scheduling.Group("/requests")
	requests.Post("", requestHandler.CreateRequest)
	requests.Get("", requestHandler.ListRequests)
	requests.Get("/:id", requestHandler.GetRequest)
	requests.Patch("/:id", requestHandler.UpdateRequest)

	dayOffs := scheduling.Group("/day-offs")
	dayOffs.Post("", calendarHandler.CreateDayOff)
	dayOffs.Get("", calendarHandler.ListDayOffs)
	dayOffs.Delete("/:id", calendarHandler.DeleteDayOff)

	locations := scheduling.Group("/locations")
	locations.Post("", calendarHandler.CreateLocation)
	locations.Get("", calendarHandler.ListLocations)

	api.Use("/v1/ws", streamHandler.WebSocketAuth)
	api.Get("/v1/ws", websocket.New(streamHandler.HandleWebSocket))
}

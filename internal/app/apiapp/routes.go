package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	authsvc "github.com/glimmerapp/backend/internal/services/auth"
	chatsvc "github.com/glimmerapp/backend/internal/services/chat"
	matchessvc "github.com/glimmerapp/backend/internal/services/matches"
	mediasvc "github.com/glimmerapp/backend/internal/services/media"
	profilesvc "github.com/glimmerapp/backend/internal/services/profiles"
	swipesvc "github.com/glimmerapp/backend/internal/services/swipes"
	"github.com/glimmerapp/backend/internal/transport/http/handlers"
)

type Dependencies struct {
	JWTManager     *authsvc.JWTManager
	ChatService    *chatsvc.Service
	MatchService   *matchessvc.Service
	MediaService   *mediasvc.Service
	ProfileService *profilesvc.Service
	SwipeService   *swipesvc.Service
	Logger         *zap.Logger
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	profileHandler := handlers.NewProfileHandler(deps.ProfileService)
	mediaHandler := handlers.NewMediaHandler(deps.MediaService)
	swipeHandler := handlers.NewSwipeHandler(deps.SwipeService)
	matchesHandler := handlers.NewMatchesHandler(deps.MatchService)
	messagesHandler := handlers.NewMessagesHandler(deps.ChatService)
	chatWSHandler := handlers.NewChatWSHandler(deps.ChatService, deps.Logger)
	authMW := AuthMiddleware(deps.JWTManager, deps.Logger)

	r.Get("/healthz", healthHandler.Get)
	r.With(authMW).Get("/profile", profileHandler.Me)
	r.With(authMW).Put("/profile", profileHandler.Save)
	r.With(authMW).Post("/profile/photo", mediaHandler.PhotoUpload)
	r.With(authMW).Get("/profiles/{userID}", profileHandler.Get)
	r.With(authMW).Post("/swipes", swipeHandler.Handle)
	r.With(authMW).Get("/matches", matchesHandler.List)
	r.With(authMW).Get("/matches/{matchID}", matchesHandler.Get)
	r.With(authMW).Get("/matches/{matchID}/messages", messagesHandler.List)
	r.With(authMW).Post("/matches/{matchID}/messages", messagesHandler.Send)
	r.With(authMW).Get("/matches/{matchID}/ws", chatWSHandler.Handle)
}

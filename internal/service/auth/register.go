package auth

import (
	"github.com/oggyb/tubematch/internal/app"
	"github.com/oggyb/tubematch/internal/server"
	"github.com/oggyb/tubematch/internal/session"
)

// Registrar ties the auth endpoints into the HTTP router
type Registrar struct {
	svc *Service
}

func NewRegistrar(appCtx *app.AppContext, provider Provider, sessions *session.Manager) *Registrar {
	return &Registrar{svc: NewService(appCtx, provider, sessions)}
}

func (r *Registrar) Register(routes server.Routes) {
	routes.Public.GET("/auth/google/login", r.svc.Login)
	routes.Public.GET("/auth/google/callback", r.svc.Callback)
	routes.Public.POST("/auth/logout", r.svc.Logout)
	routes.Authed.GET("/auth/token", r.svc.Token)
}

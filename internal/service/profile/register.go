package profile

import (
	"github.com/oggyb/tubematch/internal/app"
	"github.com/oggyb/tubematch/internal/server"
)

// Registrar ties the profile service into the HTTP router
type Registrar struct {
	svc *Service
}

func NewRegistrar(appCtx *app.AppContext, model Model, src ActivitySource, avatars AvatarStore) *Registrar {
	return &Registrar{svc: NewService(appCtx, model, src, avatars)}
}

func (r *Registrar) Register(routes server.Routes) {
	g := routes.Authed
	g.GET("/profile", r.svc.Get)
	g.PUT("/profile", r.svc.Update)
	g.POST("/profile/refresh", r.svc.Refresh)
	g.POST("/profile/chat", r.svc.Chat)
	g.POST("/profile/avatar/upload-url", r.svc.AvatarUploadURL)
	g.PUT("/profile/avatar", r.svc.ConfirmAvatar)
	g.GET("/compatibility/:id", r.svc.Compatibility)
}

package match

import (
	"github.com/oggyb/tubematch/internal/app"
	"github.com/oggyb/tubematch/internal/server"
)

// Registrar ties the match service into the HTTP router
type Registrar struct {
	appCtx   *app.AppContext
	notifier Notifier
}

// NewRegistrar creates a new Registrar for the match service
func NewRegistrar(appCtx *app.AppContext, notifier Notifier) *Registrar {
	return &Registrar{appCtx: appCtx, notifier: notifier}
}

// Register attaches the match endpoints to the authenticated group
func (r *Registrar) Register(routes server.Routes) {
	svc := NewService(r.appCtx, r.notifier)
	routes.Authed.POST("/swipe", svc.Swipe)
	routes.Authed.GET("/matches", svc.Matches)
}

package explore

import (
	"github.com/oggyb/tubematch/internal/app"
	"github.com/oggyb/tubematch/internal/server"
)

// Registrar ties the Explore service into the HTTP router
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the Explore service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the Explore endpoints to the authenticated group
func (r *Registrar) Register(routes server.Routes) {
	service := NewExploreService(r.appCtx)
	routes.Authed.GET("/deck", service.Deck)
	routes.Authed.GET("/likes", service.ListLikedYou)
	routes.Authed.GET("/likes/new", service.ListNewLikedYou)
	routes.Authed.GET("/likes/count", service.CountLikedYou)
}

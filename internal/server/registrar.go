package server

import (
	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
)

// Routes are the groups a service mounts its handlers on.
type Routes struct {
	// Public needs no credentials.
	Public *gin.RouterGroup
	// Authed runs behind middleware.Auth.
	Authed *gin.RouterGroup
}

// Registrar is a common interface for all HTTP service registrars
type Registrar interface {
	Register(r Routes)
}

// GRPCRegistrar is a common interface for all gRPC service registrars
type GRPCRegistrar interface {
	Register(s *grpc.Server)
}

// Package grpcinterface serves the operator interface of the daemon over
// grpc. Messages are JSON encoded, clients must send requests with the
// application/grpc+json content type.
package grpcinterface

import (
	"context"
	"errors"
	"fmt"
	"net"

	grpchandler "github.com/darkswap-network/darkswap-daemon/internal/interfaces/grpc/handler"
	"github.com/darkswap-network/darkswap-daemon/internal/interfaces/grpc/interceptor"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
)

type ServiceOpts struct {
	Port     int
	Operator grpchandler.OperatorOpts
}

type Service struct {
	port   int
	server *grpc.Server
}

func NewService(opts ServiceOpts) (*Service, error) {
	if opts.Port <= 0 {
		return nil, fmt.Errorf("invalid operator port %d", opts.Port)
	}
	handler, err := grpchandler.NewOperatorHandler(opts.Operator)
	if err != nil {
		return nil, fmt.Errorf("invalid opts: %s", err)
	}

	server := grpc.NewServer(interceptor.UnaryInterceptor())
	grpchandler.RegisterOperatorServer(server, handler)
	return &Service{opts.Port, server}, nil
}

// Serve listens on the configured port until ctx is done.
func (s *Service) Serve(ctx context.Context) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return err
	}
	return s.ServeListener(ctx, lis)
}

// ServeListener serves requests accepted by lis until ctx is done, then
// waits for pending requests to complete.
func (s *Service) ServeListener(ctx context.Context, lis net.Listener) error {
	errc := make(chan error, 1)
	go func() {
		log.Infof("operator interface listening on %s", lis.Addr())
		errc <- s.server.Serve(lis)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.server.GracefulStop()
		log.Debug("stopped operator interface")
		return nil
	}
}

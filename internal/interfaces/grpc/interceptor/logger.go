package interceptor

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func unaryLogger(
	ctx context.Context,
	req interface{},
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (interface{}, error) {
	start := time.Now()
	res, err := handler(ctx, req)

	entry := log.WithFields(log.Fields{
		"method":   info.FullMethod,
		"duration": time.Since(start).String(),
	})
	if err != nil {
		entry = entry.WithField("code", status.Code(err).String())
		if status.Code(err) == codes.Internal {
			entry.WithError(err).Warn("request failed")
			return res, err
		}
		entry.WithError(err).Debug("request rejected")
		return res, err
	}
	entry.Debug("request served")
	return res, err
}

func recoverPanic(p interface{}) error {
	log.Errorf("panic while serving request: %v", p)
	return status.Error(codes.Internal, "internal error")
}

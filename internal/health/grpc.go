package health

import (
	"context"

	"connectrpc.com/grpchealth"
)

// GRPCChecker serves the gRPC health protocol from the readiness checks, so
// gRPC probes and /health/ready agree.
type GRPCChecker struct {
	checker *Checker
	service string
}

func NewGRPCChecker(checker *Checker, service string) *GRPCChecker {
	return &GRPCChecker{
		checker: checker,
		service: service,
	}
}

func (g *GRPCChecker) Check(ctx context.Context, req *grpchealth.CheckRequest) (*grpchealth.CheckResponse, error) {
	if req.Service != "" && req.Service != g.service {
		return &grpchealth.CheckResponse{Status: grpchealth.StatusUnknown}, nil
	}

	if g.checker.Check(ctx).Status != StatusHealthy {
		return &grpchealth.CheckResponse{Status: grpchealth.StatusNotServing}, nil
	}
	return &grpchealth.CheckResponse{Status: grpchealth.StatusServing}, nil
}

package client

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/learnquest/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

var _ Pinger = (*HealthProbe)(nil)

// HealthProbe asks the server's grpc.health.v1 endpoint whether the
// identity service is serving.
type HealthProbe struct {
	conn   *grpc.ClientConn
	client grpc_health_v1.HealthClient
}

// NewHealthProbe does not dial; the connection is made on first use.
func NewHealthProbe(addr string) (*HealthProbe, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	return &HealthProbe{conn: conn, client: grpc_health_v1.NewHealthClient(conn)}, nil
}

func (p *HealthProbe) Ping(ctx context.Context) error {
	resp, err := p.client.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: common.HealthServiceName})
	if err != nil {
		return mapRPCError(err)
	}
	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		return fmt.Errorf("%w: status %s", ErrUnavailable, resp.GetStatus())
	}
	return nil
}

func (p *HealthProbe) Close() error {
	return p.conn.Close()
}

func mapRPCError(err error) error {
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return fmt.Errorf("%w: %s", ErrUnavailable, st.Message())
	case codes.NotFound:
		return fmt.Errorf("%w: health service not registered", ErrUnavailable)
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}

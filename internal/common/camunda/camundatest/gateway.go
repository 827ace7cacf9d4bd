// Package camundatest serves an in-process Zeebe gateway so broker commands
// can be asserted without a cluster.
package camundatest

import (
	"context"
	"net"
	"sync"
	"testing"

	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

// Gateway records the job and deployment commands it receives. Topology
// always answers so clients can connect without expectations.
type Gateway struct {
	pb.UnimplementedGatewayServer
	mock.Mock

	Addr string

	mu       sync.Mutex
	requests map[string]interface{}
}

func NewGateway(t *testing.T) *Gateway {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	g := &Gateway{Addr: listener.Addr().String(), requests: map[string]interface{}{}}
	server := grpc.NewServer()
	pb.RegisterGatewayServer(server, g)
	go func() { _ = server.Serve(listener) }()
	t.Cleanup(server.Stop)

	return g
}

// Client dials the gateway over plaintext.
func (g *Gateway) Client(t *testing.T) zbc.Client {
	t.Helper()

	client, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         g.Addr,
		UsePlaintextConnection: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// Request returns the last request received by method, or nil.
func (g *Gateway) Request(method string) interface{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.requests[method]
}

func (g *Gateway) called(method string, req interface{}) mock.Arguments {
	g.mu.Lock()
	g.requests[method] = req
	g.mu.Unlock()
	return g.MethodCalled(method, req)
}

func (g *Gateway) Topology(context.Context, *pb.TopologyRequest) (*pb.TopologyResponse, error) {
	return &pb.TopologyResponse{ClusterSize: 1, PartitionsCount: 1, ReplicationFactor: 1}, nil
}

func (g *Gateway) CompleteJob(_ context.Context, req *pb.CompleteJobRequest) (*pb.CompleteJobResponse, error) {
	args := g.called("CompleteJob", req)
	return &pb.CompleteJobResponse{}, args.Error(0)
}

func (g *Gateway) FailJob(_ context.Context, req *pb.FailJobRequest) (*pb.FailJobResponse, error) {
	args := g.called("FailJob", req)
	return &pb.FailJobResponse{}, args.Error(0)
}

func (g *Gateway) ThrowError(_ context.Context, req *pb.ThrowErrorRequest) (*pb.ThrowErrorResponse, error) {
	args := g.called("ThrowError", req)
	return &pb.ThrowErrorResponse{}, args.Error(0)
}

func (g *Gateway) CreateProcessInstance(_ context.Context, req *pb.CreateProcessInstanceRequest) (*pb.CreateProcessInstanceResponse, error) {
	args := g.called("CreateProcessInstance", req)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	return args.Get(0).(*pb.CreateProcessInstanceResponse), nil
}

func (g *Gateway) DeployResource(_ context.Context, req *pb.DeployResourceRequest) (*pb.DeployResourceResponse, error) {
	args := g.called("DeployResource", req)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	return args.Get(0).(*pb.DeployResourceResponse), nil
}

package render

import (
	"fmt"
	"log"
	"math/rand"

	"golang.org/x/net/context"
	"google.golang.org/grpc"

	pb "github.com/geoserve/ows/renderservice"
)

const DefaultRecvMsgSize = 10 * 1024 * 1024

// GRPCLayer produces map, coverage and legend payloads by calling out
// to a pool of render workers over gRPC. A random worker is picked per
// request, which keeps load roughly even without a broker in between.
type GRPCLayer struct {
	Context            context.Context
	WorkerNodes        []string
	MaxGrpcRecvMsgSize int
	Verbose            bool
}

func NewGRPCLayer(ctx context.Context, workerNodes []string, maxGrpcRecvMsgSize int, verbose bool) *GRPCLayer {
	if maxGrpcRecvMsgSize <= 0 {
		maxGrpcRecvMsgSize = DefaultRecvMsgSize
	}
	return &GRPCLayer{
		Context:            ctx,
		WorkerNodes:        workerNodes,
		MaxGrpcRecvMsgSize: maxGrpcRecvMsgSize,
		Verbose:            verbose,
	}
}

func (l *GRPCLayer) GetMap(args map[string]string) ([]byte, error) {
	return l.render("GetMap", args["layers"], args)
}

func (l *GRPCLayer) GetCoverage(args map[string]string) ([]byte, error) {
	return l.render("GetCoverage", args["coverage"], args)
}

func (l *GRPCLayer) GetLegendGraphic(args map[string]string) ([]byte, error) {
	return l.render("GetLegendGraphic", args["layer"], args)
}

func (l *GRPCLayer) render(operation, layer string, args map[string]string) ([]byte, error) {
	if len(l.WorkerNodes) == 0 {
		return nil, fmt.Errorf("no render workers configured")
	}
	conn, err := l.dialWorker(l.WorkerNodes[rand.Intn(len(l.WorkerNodes))])
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	c := pb.NewRenderClient(conn)
	r, err := c.Render(l.Context, &pb.RenderRequest{Operation: operation, Layer: layer, Args: args})
	if err != nil {
		return nil, err
	}
	if len(r.Error) > 0 && r.Error != "OK" {
		return nil, fmt.Errorf("%s", r.Error)
	}
	return r.Payload, nil
}

// ClearCache asks every worker to drop its raster caches. Offline
// workers are skipped; the next render call will report them.
func (l *GRPCLayer) ClearCache() error {
	var lastErr error
	for _, node := range l.WorkerNodes {
		conn, err := l.dialWorker(node)
		if err != nil {
			lastErr = err
			continue
		}

		if _, err := pb.NewRenderClient(conn).ClearCache(l.Context, &pb.ClearCacheRequest{}); err != nil {
			if l.Verbose {
				log.Printf("render: ClearCache on %s failed: %v", node, err)
			}
			lastErr = err
		}
		conn.Close()
	}
	return lastErr
}

func (l *GRPCLayer) dialWorker(address string) (*grpc.ClientConn, error) {
	opts := []grpc.DialOption{
		grpc.WithInsecure(),
		grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(l.MaxGrpcRecvMsgSize)),
	}
	conn, err := grpc.Dial(address, opts...)
	if err != nil {
		return nil, fmt.Errorf("gRPC connection problem: %v", err)
	}
	return conn, nil
}

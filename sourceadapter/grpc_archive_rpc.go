package sourceadapter

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/sui-replay/replaycore/errtax"
	"github.com/sui-replay/replaycore/model"
	"github.com/sui-replay/replaycore/obslog"
)

var log = obslog.Component("sourceadapter")

const (
	methodGetObject         = "/archive.ArchiveRPC/GetObject"
	methodGetPackageModules = "/archive.ArchiveRPC/GetPackageModules"
	methodGetTransaction    = "/archive.ArchiveRPC/GetTransaction"
)

// bearerCredentials attaches RPC_API_KEY as a per-RPC authorization header.
// An empty token means unauthenticated mode.
type bearerCredentials struct {
	token string
}

func (b bearerCredentials) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	if b.token == "" {
		return nil, nil
	}
	return map[string]string{"authorization": "Bearer " + b.token}, nil
}

func (b bearerCredentials) RequireTransportSecurity() bool { return false }

// grpcArchiveRPC is the ArchiveRPC adapter. It never retains state
// across calls beyond the pooled connection itself.
type grpcArchiveRPC struct {
	conn  *grpc.ClientConn
	token string
}

// NewGRPCArchiveRPC dials the archive RPC endpoint. apiKey may be empty.
func NewGRPCArchiveRPC(endpoint, apiKey string) (ArchiveRPC, error) {
	conn, err := grpc.Dial(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithPerRPCCredentials(bearerCredentials{token: apiKey}),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(wireCodec{})),
	)
	if err != nil {
		return nil, errtax.Host("grpc dial", err)
	}
	return &grpcArchiveRPC{conn: conn, token: apiKey}, nil
}

func (a *grpcArchiveRPC) GetObject(ctx context.Context, id model.ObjectID, version uint64) (model.Object, error) {
	req := &getObjectRequest{ID: id, Version: version}
	resp := &getObjectResponse{}
	if err := a.conn.Invoke(ctx, methodGetObject, req, resp); err != nil {
		return model.Object{}, translateGRPCError(err)
	}
	return resp.Object, nil
}

func (a *grpcArchiveRPC) GetPackageModules(ctx context.Context, storageID model.PackageID) (model.Package, error) {
	req := &getPackageModulesRequest{StorageID: storageID}
	resp := &getPackageModulesResponse{}
	if err := a.conn.Invoke(ctx, methodGetPackageModules, req, resp); err != nil {
		return model.Package{}, translateGRPCError(err)
	}
	return resp.Package, nil
}

func (a *grpcArchiveRPC) GetTransaction(ctx context.Context, digest model.Digest) (model.Transaction, model.Effects, error) {
	req := &getTransactionRequest{Digest: digest}
	resp := &getTransactionResponse{}
	if err := a.conn.Invoke(ctx, methodGetTransaction, req, resp); err != nil {
		return model.Transaction{}, model.Effects{}, translateGRPCError(err)
	}
	return resp.Transaction, resp.Effects, nil
}

// translateGRPCError maps the archive RPC's status codes onto the errtax
// taxonomy: an auth failure is distinguished from a transient host failure
// so the comparator never confuses "wrong credentials" with "retry later."
func translateGRPCError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return errtax.Host("archive rpc", err)
	}
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		log.WithField("rpc_code", st.Code()).Warn("archive rpc rejected credentials")
		return errtax.ErrUnauthenticated
	case codes.NotFound:
		return errtax.NotAvailable("object_or_package_not_found")
	case codes.DeadlineExceeded:
		return errtax.ErrTimeout
	case codes.Canceled:
		return errtax.ErrCancelled
	default:
		return errtax.Host("archive rpc", err)
	}
}

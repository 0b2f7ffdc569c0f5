package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/earthref/KDD/internal/kdd/summary"
	platformgrpc "github.com/earthref/KDD/internal/platform/grpc"
	"github.com/earthref/KDD/internal/platform/timeouts"
	summaryservice "github.com/earthref/KDD/internal/services/summary/api/grpc/summary"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// remoteBackend sends each contribution to a running summary service.
type remoteBackend struct {
	conn   *grpc.ClientConn
	client *summaryservice.Client
}

func newRemoteBackend(ctx context.Context, addr string) (*remoteBackend, error) {
	conn, err := platformgrpc.DialWithHealth(ctx, nil, addr, summaryservice.ServiceName, timeouts.GRPCDial, log.Printf)
	if err != nil {
		return nil, fmt.Errorf("dial summary service: %w", err)
	}
	return &remoteBackend{conn: conn, client: summaryservice.NewClient(conn)}, nil
}

func (b *remoteBackend) summarize(ctx context.Context, mode summary.Mode, j job, persist bool) (outcome, error) {
	data, err := os.ReadFile(j.Path)
	if err != nil {
		return outcome{}, err
	}
	var tables map[string]any
	if err := json.Unmarshal(data, &tables); err != nil {
		return outcome{}, fmt.Errorf("decode contribution: %w", err)
	}
	fields := map[string]any{
		"contribution": tables,
		"persist":      persist,
	}
	if j.ID > 0 {
		fields["contribution_id"] = j.ID
	}
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return outcome{}, fmt.Errorf("encode request: %w", err)
	}

	call := b.client.Summarize
	if mode == summary.ModeCounts {
		call = b.client.PreSummarize
	}
	resp, err := call(ctx, req)
	if err != nil {
		return outcome{}, err
	}
	respFields := resp.GetFields()
	document, err := json.Marshal(respFields["summary"].AsInterface())
	if err != nil {
		return outcome{}, fmt.Errorf("encode summary: %w", err)
	}
	return outcome{
		Document: document,
		Errors:   remoteIssueCount(respFields["errors"]),
		Warnings: remoteIssueCount(respFields["warnings"]),
	}, nil
}

func (b *remoteBackend) close() error {
	return b.conn.Close()
}

func remoteIssueCount(value *structpb.Value) int {
	n := 0
	for _, issue := range value.GetListValue().GetValues() {
		n += int(issue.GetStructValue().GetFields()["count"].GetNumberValue())
	}
	return n
}

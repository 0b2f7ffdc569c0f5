package server

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	platformgrpc "github.com/earthref/KDD/internal/platform/grpc"
	summaryservice "github.com/earthref/KDD/internal/services/summary/api/grpc/summary"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func startServer(t *testing.T) *Server {
	t.Helper()
	t.Setenv("KDD_SUMMARY_DB_PATH", filepath.Join(t.TempDir(), "nested", "summaries.db"))
	t.Setenv("KDD_CROSSREF_DISABLED", "true")

	srv, err := NewWithAddr("127.0.0.1:0")
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- srv.Serve(runCtx)
	}()
	t.Cleanup(func() {
		runCancel()
		select {
		case serveErr := <-serveDone:
			if serveErr != nil {
				t.Errorf("serve: %v", serveErr)
			}
		case <-time.After(5 * time.Second):
			t.Error("timeout waiting for server shutdown")
		}
	})
	return srv
}

func TestServerSummarizePersistAndRead(t *testing.T) {
	srv := startServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := platformgrpc.DialWithHealth(ctx, nil, srv.Addr(), summaryservice.ServiceName, 2*time.Second, t.Logf)
	if err != nil {
		t.Fatalf("dial summary server: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := conn.Close(); closeErr != nil {
			t.Errorf("close gRPC connection: %v", closeErr)
		}
	})
	client := summaryservice.NewClient(conn)

	req, err := structpb.NewStruct(map[string]any{
		"contribution_id": 12,
		"persist":         true,
		"contribution": map[string]any{
			"contribution": []any{map[string]any{}},
			"kds": map[string]any{
				"columns": []any{"element", "kd"},
				"rows":    []any{[]any{"Na", 5}, []any{"K", 0.2}},
			},
		},
	})
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := client.Summarize(ctx, req)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if resp.GetFields()["revision_id"].GetStringValue() == "" {
		t.Fatal("expected revision id")
	}

	getReq, _ := structpb.NewStruct(map[string]any{"contribution_id": 12})
	got, err := client.GetSummary(ctx, getReq)
	if err != nil {
		t.Fatalf("get summary: %v", err)
	}
	kds := got.GetFields()["summary"].GetStructValue().
		GetFields()["contribution"].GetStructValue().
		GetFields()["summary"].GetStructValue().
		GetFields()["kds"].GetStructValue()
	if n := kds.GetFields()["_n_kds"].GetNumberValue(); n != 2 {
		t.Fatalf("_n_kds = %v, want 2", n)
	}

	list, err := client.ListSummaries(ctx, &structpb.Struct{})
	if err != nil {
		t.Fatalf("list summaries: %v", err)
	}
	if n := len(list.GetFields()["summaries"].GetListValue().GetValues()); n != 1 {
		t.Fatalf("summaries = %d, want 1", n)
	}

	missing, _ := structpb.NewStruct(map[string]any{"contribution_id": 99})
	if _, err := client.GetSummary(ctx, missing); status.Code(err) != codes.NotFound {
		t.Fatalf("missing summary code = %v, want %v", status.Code(err), codes.NotFound)
	}
}

func TestNewWithAddrRejectsBadDataModel(t *testing.T) {
	t.Setenv("KDD_SUMMARY_DB_PATH", filepath.Join(t.TempDir(), "summaries.db"))
	t.Setenv("KDD_DATA_MODEL_PATH", filepath.Join(t.TempDir(), "missing.json"))

	if srv, err := NewWithAddr("127.0.0.1:0"); err == nil {
		srv.Close()
		t.Fatal("expected error for missing data model")
	}
}

func TestServeNilServer(t *testing.T) {
	var srv *Server
	if err := srv.Serve(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if srv.Addr() != "" {
		t.Fatal("expected empty addr")
	}
}

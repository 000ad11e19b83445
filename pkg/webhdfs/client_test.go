package webhdfs_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/nucleus/webhdfs-core/pkg/webhdfs"
)

const apiPrefix = "/webhdfs/v1"

func newClient(t *testing.T, srv *httptest.Server, user string) *webhdfs.Client {
	t.Helper()
	host, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	if err != nil {
		t.Fatalf("Split listener address: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("Parse listener port: %v", err)
	}
	client, err := webhdfs.New(webhdfs.Config{Host: host, Port: port, User: user})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func assertOpError(t *testing.T, err error, code, op string) *webhdfs.Error {
	t.Helper()
	if err == nil {
		t.Fatalf("Expected %s error, got nil", code)
	}
	var werr *webhdfs.Error
	if !errors.As(err, &werr) {
		t.Fatalf("Expected *webhdfs.Error, got %T: %v", err, err)
	}
	if werr.Code != code {
		t.Fatalf("Expected code %s, got %s (%v)", code, werr.Code, werr)
	}
	if werr.Op != op {
		t.Errorf("Expected op %s, got %s", op, werr.Op)
	}
	return werr
}

// =============================================================================
// WRITE
// =============================================================================

func TestClient_WriteFile(t *testing.T) {
	var (
		uploaded       []byte
		datanodeMethod string
		namenodePath   string
		namenodeQuery  string
	)
	datanode := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		datanodeMethod = r.Method
		uploaded, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer datanode.Close()

	namenode := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		namenodePath = r.URL.Path
		namenodeQuery = r.URL.RawQuery
		w.Header().Set("Location", datanode.URL+"/writehandle")
		w.WriteHeader(http.StatusTemporaryRedirect)
	}))
	defer namenode.Close()

	client := newClient(t, namenode, "alice")
	opts := new(webhdfs.WriteOptions).SetOverwrite(true).SetPermission(644)
	err := client.WriteFile(context.Background(), strings.NewReader("hello hdfs"), "/tmp/data.txt", opts)
	if err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	if string(uploaded) != "hello hdfs" {
		t.Errorf("Expected uploaded body %q, got %q", "hello hdfs", uploaded)
	}
	if datanodeMethod != http.MethodPut {
		t.Errorf("Expected PUT on datanode, got %s", datanodeMethod)
	}
	if want := apiPrefix + "/tmp/data.txt"; namenodePath != want {
		t.Errorf("Expected namenode path %q, got %q", want, namenodePath)
	}
	if want := "user.name=alice&op=CREATE&overwrite=true&permission=644"; namenodeQuery != want {
		t.Errorf("Expected namenode query %q, got %q", want, namenodeQuery)
	}
}

func TestClient_WriteFile_NoRedirectTarget(t *testing.T) {
	requests := 0
	namenode := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		// A 307 with no Location header breaks the two-phase contract.
		w.WriteHeader(http.StatusTemporaryRedirect)
	}))
	defer namenode.Close()

	client := newClient(t, namenode, "alice")
	err := client.WriteFile(context.Background(), strings.NewReader("x"), "/tmp/f", nil)
	werr := assertOpError(t, err, webhdfs.CodeProtocol, webhdfs.OpCreate)
	if werr.Path != "/tmp/f" {
		t.Errorf("Expected path in error, got %q", werr.Path)
	}
	if requests != 1 {
		t.Errorf("Expected no second exchange, saw %d requests", requests)
	}
}

func TestClient_WriteFile_DatanodeFailure(t *testing.T) {
	datanode := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, "write pipeline failed")
	}))
	defer datanode.Close()

	namenode := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", datanode.URL+"/writehandle")
		w.WriteHeader(http.StatusTemporaryRedirect)
	}))
	defer namenode.Close()

	client := newClient(t, namenode, "alice")
	err := client.WriteFile(context.Background(), strings.NewReader("x"), "/tmp/f", nil)
	werr := assertOpError(t, err, webhdfs.CodeUnexpectedStatus, webhdfs.OpCreate)
	if werr.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", werr.StatusCode)
	}
	if !strings.Contains(werr.Error(), "write pipeline failed") {
		t.Errorf("Expected diagnostic body in message, got %v", werr)
	}
}

func TestClient_WriteFile_SourceFailure(t *testing.T) {
	datanode := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer datanode.Close()

	namenode := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", datanode.URL+"/writehandle")
		w.WriteHeader(http.StatusTemporaryRedirect)
	}))
	defer namenode.Close()

	client := newClient(t, namenode, "alice")
	cause := errors.New("source went away")
	err := client.WriteFile(context.Background(), &failingReader{err: cause}, "/tmp/f", nil)
	werr := assertOpError(t, err, webhdfs.CodeClientIO, webhdfs.OpCreate)
	if !errors.Is(werr, cause) {
		t.Errorf("Expected wrapped source cause, got %v", werr)
	}
}

type failingReader struct {
	err error
}

func (r *failingReader) Read(p []byte) (int, error) {
	return 0, r.err
}

type failingWriter struct {
	err error
}

func (w *failingWriter) Write(p []byte) (int, error) {
	return 0, w.err
}

// =============================================================================
// READ
// =============================================================================

func TestClient_ReadFile(t *testing.T) {
	datanode := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "file contents from datanode")
	}))
	defer datanode.Close()

	var namenodeQuery string
	namenode := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		namenodeQuery = r.URL.RawQuery
		http.Redirect(w, r, datanode.URL+"/readhandle", http.StatusTemporaryRedirect)
	}))
	defer namenode.Close()

	client := newClient(t, namenode, "bob")
	var sink bytes.Buffer
	opts := new(webhdfs.ReadOptions).SetOffset(128).SetLength(64)
	if err := client.ReadFile(context.Background(), "/tmp/data.txt", &sink, opts); err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}

	if sink.String() != "file contents from datanode" {
		t.Errorf("Expected datanode body, got %q", sink.String())
	}
	if want := "user.name=bob&op=OPEN&offset=128&length=64"; namenodeQuery != want {
		t.Errorf("Expected namenode query %q, got %q", want, namenodeQuery)
	}
}

func TestClient_ReadFile_NotFound(t *testing.T) {
	namenode := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"RemoteException":{"exception":"FileNotFoundException","javaClassName":"java.io.FileNotFoundException","message":"File does not exist: /tmp/missing"}}`)
	}))
	defer namenode.Close()

	client := newClient(t, namenode, "bob")
	err := client.ReadFile(context.Background(), "/tmp/missing", io.Discard, nil)
	werr := assertOpError(t, err, webhdfs.CodeRemote, webhdfs.OpOpen)
	if !webhdfs.IsNotFound(werr) {
		t.Errorf("Expected IsNotFound, got %v", werr)
	}
	if !strings.Contains(werr.Error(), "remote error: File does not exist") {
		t.Errorf("Expected server message, got %v", werr)
	}
}

func TestClient_ReadFile_SinkFailure(t *testing.T) {
	namenode := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "bytes the sink will reject")
	}))
	defer namenode.Close()

	client := newClient(t, namenode, "bob")
	cause := errors.New("sink is full")
	err := client.ReadFile(context.Background(), "/tmp/f", &failingWriter{err: cause}, nil)
	werr := assertOpError(t, err, webhdfs.CodeClientIO, webhdfs.OpOpen)
	if !errors.Is(werr, cause) {
		t.Errorf("Expected wrapped sink cause, got %v", werr)
	}
}

// =============================================================================
// BOOLEAN-REPLY OPERATIONS
// =============================================================================

func TestClient_MakeDir_ReplyVerification(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{
			name: "exact true reply",
			body: `{"boolean":true}`,
		},
		{
			name:    "false reply",
			body:    `{"boolean":false}`,
			wantErr: true,
		},
		{
			name:    "differently shaped true",
			body:    `{"boolean": true}`,
			wantErr: true,
		},
		{
			name:    "bare true",
			body:    `true`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			client := newClient(t, srv, "carol")
			err := client.MakeDir(context.Background(), "/tmp/newdir", nil)
			if tt.wantErr {
				assertOpError(t, err, webhdfs.CodeVerification, webhdfs.OpMkdirs)
				return
			}
			if err != nil {
				t.Fatalf("MakeDir error: %v", err)
			}
		})
	}
}

func TestClient_Remove(t *testing.T) {
	var (
		gotMethod string
		gotQuery  string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotQuery = r.URL.RawQuery
		io.WriteString(w, `{"boolean":true}`)
	}))
	defer srv.Close()

	client := newClient(t, srv, "carol")
	opts := new(webhdfs.RemoveOptions).SetRecursive(true)
	if err := client.Remove(context.Background(), "/tmp/olddir", opts); err != nil {
		t.Fatalf("Remove error: %v", err)
	}

	if gotMethod != http.MethodDelete {
		t.Errorf("Expected DELETE, got %s", gotMethod)
	}
	if want := "user.name=carol&op=DELETE&recursive=true"; gotQuery != want {
		t.Errorf("Expected query %q, got %q", want, gotQuery)
	}
}

func TestClient_Rename(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		io.WriteString(w, `{"boolean":true}`)
	}))
	defer srv.Close()

	client := newClient(t, srv, "carol")
	if err := client.Rename(context.Background(), "/tmp/old.txt", "/tmp/new.txt"); err != nil {
		t.Fatalf("Rename error: %v", err)
	}

	// The destination rides along unencoded, straight after the op.
	if want := "user.name=carol&op=RENAME&destination=/tmp/new.txt"; gotQuery != want {
		t.Errorf("Expected query %q, got %q", want, gotQuery)
	}
}

func TestClient_Remove_RemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"RemoteException":{"exception":"AccessControlException","message":"Permission denied: user=carol"}}`)
	}))
	defer srv.Close()

	client := newClient(t, srv, "carol")
	err := client.Remove(context.Background(), "/protected", nil)
	werr := assertOpError(t, err, webhdfs.CodeRemote, webhdfs.OpDelete)
	if werr.Exception != "AccessControlException" {
		t.Errorf("Expected exception class, got %q", werr.Exception)
	}
	if !webhdfs.IsRemoteError(werr) {
		t.Error("Expected IsRemoteError")
	}
}

// =============================================================================
// LISTING AND METADATA
// =============================================================================

const listingBody = `{
  "FileStatuses": {
    "FileStatus": [
      {
        "accessTime": 1700000000000,
        "blockSize": 134217728,
        "group": "supergroup",
        "length": 24930,
        "modificationTime": 1700000300000,
        "owner": "hdfs",
        "pathSuffix": "part-00000.csv",
        "permission": "644",
        "replication": 3,
        "type": "FILE"
      },
      {
        "accessTime": 0,
        "blockSize": 0,
        "group": "supergroup",
        "length": 0,
        "modificationTime": 1700000600000,
        "owner": "hdfs",
        "pathSuffix": "staging",
        "permission": "755",
        "replication": 0,
        "type": "DIRECTORY"
      }
    ]
  }
}`

func TestClient_ListDir(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		io.WriteString(w, listingBody)
	}))
	defer srv.Close()

	client := newClient(t, srv, "dave")
	entries, err := client.ListDir(context.Background(), "/data")
	if err != nil {
		t.Fatalf("ListDir error: %v", err)
	}

	if want := "user.name=dave&op=LISTSTATUS"; gotQuery != want {
		t.Errorf("Expected query %q, got %q", want, gotQuery)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}

	file := entries[0]
	if file.PathSuffix != "part-00000.csv" || file.IsDir() {
		t.Errorf("Expected first entry to be the file, got %+v", file)
	}
	if file.Length != 24930 || file.Replication != 3 || file.Permission != "644" {
		t.Errorf("Unexpected file fields: %+v", file)
	}
	if file.Modified().UnixMilli() != 1700000300000 {
		t.Errorf("Unexpected modification time: %v", file.Modified())
	}

	dir := entries[1]
	if dir.PathSuffix != "staging" || !dir.IsDir() {
		t.Errorf("Expected second entry to be the directory, got %+v", dir)
	}
}

func TestClient_ListDir_Permissive(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{
			name: "empty object",
			body: `{}`,
		},
		{
			name: "empty statuses member",
			body: `{"FileStatuses":{}}`,
		},
		{
			name: "wrongly shaped member",
			body: `{"FileStatuses":"bogus"}`,
		},
		{
			name:    "not json at all",
			body:    `<html>It works</html>`,
			wantErr: true,
		},
		{
			name:    "empty body",
			body:    ``,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			client := newClient(t, srv, "dave")
			entries, err := client.ListDir(context.Background(), "/data")
			if tt.wantErr {
				werr := assertOpError(t, err, webhdfs.CodeVerification, webhdfs.OpListStatus)
				if !strings.Contains(werr.Error(), "cannot parse directory listing") {
					t.Errorf("Unexpected message: %v", werr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ListDir error: %v", err)
			}
			if len(entries) != 0 {
				t.Errorf("Expected empty listing, got %d entries", len(entries))
			}
		})
	}
}

func TestClient_ListDir_TypeNormalization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"FileStatuses":{"FileStatus":[{"pathSuffix":"link","type":"SYMLINK"}]}}`)
	}))
	defer srv.Close()

	client := newClient(t, srv, "dave")
	entries, err := client.ListDir(context.Background(), "/data")
	if err != nil {
		t.Fatalf("ListDir error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if entries[0].Type != webhdfs.PathTypeDirectory {
		t.Errorf("Expected unknown type to normalize to DIRECTORY, got %q", entries[0].Type)
	}
}

func TestClient_Stat(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		io.WriteString(w, `{"FileStatus":{"accessTime":1700000000000,"blockSize":134217728,"group":"supergroup","length":512,"modificationTime":1700000300000,"owner":"hdfs","pathSuffix":"","permission":"644","replication":2,"type":"FILE"}}`)
	}))
	defer srv.Close()

	client := newClient(t, srv, "erin")
	st, err := client.Stat(context.Background(), "/tmp/f.bin")
	if err != nil {
		t.Fatalf("Stat error: %v", err)
	}

	if want := "user.name=erin&op=GETFILESTATUS"; gotQuery != want {
		t.Errorf("Expected query %q, got %q", want, gotQuery)
	}
	if st.IsDir() || st.Length != 512 || st.Replication != 2 {
		t.Errorf("Unexpected status: %+v", st)
	}
}

func TestClient_ContentSummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"ContentSummary":{"directoryCount":2,"fileCount":1,"length":24930,"quota":-1,"spaceConsumed":74790,"spaceQuota":-1}}`)
	}))
	defer srv.Close()

	client := newClient(t, srv, "erin")
	sum, err := client.ContentSummary(context.Background(), "/data")
	if err != nil {
		t.Fatalf("ContentSummary error: %v", err)
	}
	if sum.FileCount != 1 || sum.DirectoryCount != 2 || sum.SpaceConsumed != 74790 {
		t.Errorf("Unexpected summary: %+v", sum)
	}
	if sum.Quota != -1 || sum.SpaceQuota != -1 {
		t.Errorf("Expected unset quotas to stay -1: %+v", sum)
	}
}

func TestClient_Exists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/present"):
			io.WriteString(w, `{"FileStatus":{"type":"FILE"}}`)
		case strings.HasSuffix(r.URL.Path, "/absent"):
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"RemoteException":{"exception":"FileNotFoundException","message":"File does not exist"}}`)
		default:
			w.WriteHeader(http.StatusInternalServerError)
			io.WriteString(w, "namenode is unhappy")
		}
	}))
	defer srv.Close()

	client := newClient(t, srv, "erin")
	ctx := context.Background()

	ok, err := client.Exists(ctx, "/tmp/present")
	if err != nil || !ok {
		t.Errorf("Expected (true, nil), got (%v, %v)", ok, err)
	}

	ok, err = client.Exists(ctx, "/tmp/absent")
	if err != nil || ok {
		t.Errorf("Expected (false, nil), got (%v, %v)", ok, err)
	}

	ok, err = client.Exists(ctx, "/tmp/broken")
	if err == nil || ok {
		t.Errorf("Expected failure to surface, got (%v, %v)", ok, err)
	}
}

// =============================================================================
// CONSTRUCTION
// =============================================================================

func TestClient_New_RequiresHost(t *testing.T) {
	if _, err := webhdfs.New(webhdfs.Config{}); err == nil {
		t.Fatal("Expected error for missing host")
	}
}

package integration

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/gurre/awsgate/auth"
	"github.com/gurre/awsgate/integration/mock"
	"github.com/gurre/awsgate/metrics"
	"github.com/gurre/awsgate/objectstore"
	"github.com/gurre/awsgate/queue"
	"github.com/gurre/awsgate/secret"
	"github.com/gurre/awsgate/server"
	"github.com/gurre/awsgate/topic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus/hooks/test"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	srv     *httptest.Server
	sqs     *mock.SQSClient
	sns     *mock.SNSClient
	s3      *mock.S3Client
	secrets *mock.SecretsManagerClient
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger, _ := test.NewNullLogger()

	f := &fixture{
		sqs:     mock.NewSQSClient("orders", "orders.fifo"),
		sns:     mock.NewSNSClient("alerts"),
		s3:      mock.NewS3Client("docs"),
		secrets: mock.NewSecretsManagerClient(),
	}

	table, err := auth.NewTable(auth.DefaultUsers(), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to build principal table: %v", err)
	}
	reg := prometheus.NewRegistry()

	app := &server.App{
		Queue:    queue.New(f.sqs, logger),
		Topic:    topic.New(f.sns, logger),
		Objects:  objectstore.New(f.s3, logger),
		Secrets:  secret.New(f.secrets, logger),
		Gate:     auth.NewGate(table, auth.DefaultPolicy(), "awsgate", logger),
		Metrics:  metrics.NewMetrics(reg),
		Gatherer: reg,
		Logger:   logger,
		Version:  "integration",
	}
	f.srv = httptest.NewServer(app.Router())
	t.Cleanup(f.srv.Close)
	return f
}

// call sends body (JSON when it is a string) as the named principal and
// decodes the JSON response. user may be empty for an anonymous call.
func (f *fixture) call(t *testing.T, method, path, user, password, body string) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, r)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.SetBasicAuth(user, password)
	}
	return f.send(t, req)
}

func (f *fixture) send(t *testing.T, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := f.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("Response is not JSON (%d): %s", resp.StatusCode, raw)
	}
	return resp.StatusCode, out
}

func TestQueueFlow(t *testing.T) {
	f := newFixture(t)

	code, body := f.call(t, http.MethodPost, "/api/sqs/send", "admin", "admin123",
		`{"queueName":"orders","messageBody":"order #1","delaySeconds":5}`)
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %v", code, body)
	}
	msgs := f.sqs.Messages("orders")
	if len(msgs) != 1 {
		t.Fatalf("Expected 1 queued message, got %d", len(msgs))
	}
	if body["messageId"] != msgs[0].ID {
		t.Errorf("Expected messageId %s, got %v", msgs[0].ID, body["messageId"])
	}
	if msgs[0].Body != "order #1" || msgs[0].DelaySeconds != 5 {
		t.Errorf("Unexpected message: %+v", msgs[0])
	}

	// A full queue URL bypasses name resolution.
	code, _ = f.call(t, http.MethodPost, "/api/sqs/send", "admin", "admin123",
		`{"queueName":"`+mock.QueueURLPrefix+`orders","messageBody":"order #2"}`)
	if code != http.StatusOK {
		t.Fatalf("Expected 200 for queue URL, got %d", code)
	}
	if n := len(f.sqs.Messages("orders")); n != 2 {
		t.Errorf("Expected 2 queued messages, got %d", n)
	}

	code, body = f.call(t, http.MethodPost, "/api/sqs/send", "admin", "admin123",
		`{"queueName":"nope","messageBody":"x"}`)
	if code != http.StatusInternalServerError {
		t.Fatalf("Expected 500 for unknown queue, got %d", code)
	}
	if msg, _ := body["error"].(string); !strings.Contains(msg, "The specified queue does not exist.") {
		t.Errorf("Expected provider text in error, got %q", msg)
	}

	code, _ = f.call(t, http.MethodPost, "/api/sqs/send", "admin", "admin123",
		`{"queueName":"orders.fifo","messageBody":"x","messageGroupId":" "}`)
	if code != http.StatusInternalServerError {
		t.Errorf("Expected 500 when a blank group id is omitted on a FIFO queue, got %d", code)
	}

	code, _ = f.call(t, http.MethodPost, "/api/sqs/send", "admin", "admin123",
		`{"queueName":"orders.fifo","messageBody":"x","messageGroupId":"g1","messageDeduplicationId":"d1"}`)
	if code != http.StatusOK {
		t.Fatalf("Expected 200 for FIFO send, got %d", code)
	}
	if got := f.sqs.Messages("orders.fifo"); len(got) != 1 || got[0].GroupID != "g1" || got[0].DeduplicationID != "d1" {
		t.Errorf("Unexpected FIFO messages: %+v", got)
	}

	code, _ = f.call(t, http.MethodPost, "/api/sqs/send", "admin", "admin123",
		`{"queueName":"orders","messageBody":"x","delaySeconds":901}`)
	if code != http.StatusBadRequest {
		t.Errorf("Expected 400 for delay out of range, got %d", code)
	}

	code, _ = f.call(t, http.MethodPost, "/api/sqs/send", "user", "user123",
		`{"queueName":"orders","messageBody":"x"}`)
	if code != http.StatusForbidden {
		t.Errorf("Expected 403 for user on SQS, got %d", code)
	}
}

func TestTopicFlow(t *testing.T) {
	f := newFixture(t)
	arn := mock.TopicARNPrefix + "alerts"

	code, body := f.call(t, http.MethodPost, "/api/sns/publish", "user", "user123",
		`{"topicArn":"`+arn+`","message":"disk full","subject":""}`)
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %v", code, body)
	}
	published := f.sns.Published(arn)
	if len(published) != 1 || published[0].Message != "disk full" || published[0].Subject != "" {
		t.Fatalf("Unexpected notifications: %+v", published)
	}

	code, body = f.call(t, http.MethodGet, "/api/sns/topic/"+arn+"/exists", "user", "user123", "")
	if code != http.StatusOK || body["exists"] != true {
		t.Errorf("Expected existing topic, got %d %v", code, body)
	}
	code, body = f.call(t, http.MethodGet, "/api/sns/topic/"+mock.TopicARNPrefix+"missing/exists", "user", "user123", "")
	if code != http.StatusOK || body["exists"] != false {
		t.Errorf("Expected missing topic, got %d %v", code, body)
	}
}

func TestObjectFlow(t *testing.T) {
	f := newFixture(t)

	code, body := f.call(t, http.MethodPost, "/api/s3/upload", "user", "user123",
		`{"bucketName":"docs","objectKey":"notes/a.txt","content":"aGVsbG8=","metadata":"team-a"}`)
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %v", code, body)
	}
	if etag, _ := body["eTag"].(string); etag == "" {
		t.Error("Expected an eTag")
	}
	if md := f.s3.Metadata("docs", "notes/a.txt"); md[objectstore.MetadataKey] != "team-a" {
		t.Errorf("Expected metadata to be stored, got %v", md)
	}

	code, _ = f.call(t, http.MethodPost, "/api/s3/upload", "user", "user123",
		`{"bucketName":"docs","objectKey":"empty.txt"}`)
	if code != http.StatusOK {
		t.Fatalf("Expected 200 for default content, got %d", code)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("bucketName", "docs")
	_ = mw.WriteField("objectKey", "notes/b.csv")
	part, _ := mw.CreateFormFile("file", "b.csv")
	_, _ = part.Write([]byte("x,y\n"))
	_ = mw.Close()
	req, _ := http.NewRequest(http.MethodPost, f.srv.URL+"/api/s3/upload-file", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.SetBasicAuth("user", "user123")
	code, body = f.send(t, req)
	if code != http.StatusOK || body["fileSize"] != float64(4) {
		t.Fatalf("Expected multipart upload to succeed, got %d %v", code, body)
	}

	code, body = f.call(t, http.MethodGet, "/api/s3/list/docs?prefix=notes/", "user", "user123", "")
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	objects, _ := body["objects"].([]any)
	if len(objects) != 2 || objects[0] != "notes/a.txt" || objects[1] != "notes/b.csv" {
		t.Errorf("Unexpected listing: %v", body["objects"])
	}

	req, _ = http.NewRequest(http.MethodGet, f.srv.URL+"/api/s3/download/docs/empty.txt", nil)
	req.SetBasicAuth("user", "user123")
	resp, err := f.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(data) != objectstore.DefaultContent {
		t.Errorf("Expected default content, got %d %q", resp.StatusCode, data)
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != "attachment; filename=empty.txt" {
		t.Errorf("Unexpected Content-Disposition %q", cd)
	}

	code, body = f.call(t, http.MethodDelete, "/api/s3/docs/notes/a.txt", "user", "user123", "")
	if code != http.StatusOK {
		t.Fatalf("Expected 200 on delete, got %d %v", code, body)
	}
	code, _ = f.call(t, http.MethodGet, "/api/s3/download/docs/notes/a.txt", "user", "user123", "")
	if code != http.StatusInternalServerError {
		t.Errorf("Expected 500 after delete, got %d", code)
	}

	code, body = f.call(t, http.MethodGet, "/api/s3/bucket/docs/exists", "user", "user123", "")
	if code != http.StatusOK || body["exists"] != true {
		t.Errorf("Expected existing bucket, got %d %v", code, body)
	}
	code, body = f.call(t, http.MethodGet, "/api/s3/bucket/other/exists", "user", "user123", "")
	if code != http.StatusOK || body["exists"] != false {
		t.Errorf("Expected missing bucket, got %d %v", code, body)
	}
}

func TestEscapedObjectKeys(t *testing.T) {
	f := newFixture(t)

	for _, key := range []string{"report%41.txt", "nested/dir/a b.txt", "x/report%41.txt"} {
		t.Run(key, func(t *testing.T) {
			payload, _ := json.Marshal(map[string]any{"bucketName": "docs", "objectKey": key, "content": []byte(key)})
			code, body := f.call(t, http.MethodPost, "/api/s3/upload", "user", "user123", string(payload))
			if code != http.StatusOK {
				t.Fatalf("Expected 200 on upload, got %d: %v", code, body)
			}

			req, _ := http.NewRequest(http.MethodGet, f.srv.URL+"/api/s3/download/docs/"+url.PathEscape(key), nil)
			req.SetBasicAuth("user", "user123")
			resp, err := f.srv.Client().Do(req)
			if err != nil {
				t.Fatalf("Download failed: %v", err)
			}
			data, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK || string(data) != key {
				t.Fatalf("Expected %q back, got %d %q", key, resp.StatusCode, data)
			}

			code, body = f.call(t, http.MethodDelete, "/api/s3/docs/"+url.PathEscape(key), "user", "user123", "")
			if code != http.StatusOK || body["objectKey"] != key {
				t.Errorf("Expected delete of %q, got %d %v", key, code, body)
			}
		})
	}
}

func TestEscapedSecretNames(t *testing.T) {
	f := newFixture(t)
	name := "pct%41"

	code, _ := f.call(t, http.MethodPost, "/api/secrets/create", "user", "user123",
		`{"secretName":"`+name+`","secretValue":"v"}`)
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}

	code, body := f.call(t, http.MethodGet, "/api/secrets/"+url.PathEscape(name)+"/exists", "user", "user123", "")
	if code != http.StatusOK || body["exists"] != true || body["secretName"] != name {
		t.Errorf("Expected %q to exist, got %d %v", name, code, body)
	}

	code, body = f.call(t, http.MethodGet, "/api/secrets/"+url.PathEscape(name), "user", "user123", "")
	if code != http.StatusOK || body["secretValue"] != "v" {
		t.Errorf("Expected secret value, got %d %v", code, body)
	}

	code, body = f.call(t, http.MethodDelete, "/api/secrets/"+url.PathEscape(name)+"?forceDelete=true", "user", "user123", "")
	if code != http.StatusOK || body["secretName"] != name {
		t.Errorf("Expected delete of %q, got %d %v", name, code, body)
	}
}

func TestSecretLifecycle(t *testing.T) {
	f := newFixture(t)

	code, body := f.call(t, http.MethodPost, "/api/secrets/create", "user", "user123",
		`{"secretName":"db","secretValue":"v1","description":"database"}`)
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %v", code, body)
	}
	if arn, _ := body["secretArn"].(string); !strings.HasPrefix(arn, mock.SecretARNPrefix+"db") {
		t.Errorf("Unexpected ARN %q", arn)
	}

	code, body = f.call(t, http.MethodPost, "/api/secrets/create", "user", "user123",
		`{"secretName":"db","secretValue":"again"}`)
	if code != http.StatusInternalServerError {
		t.Errorf("Expected 500 for duplicate secret, got %d", code)
	}
	if msg, _ := body["error"].(string); !strings.Contains(msg, "already exists") {
		t.Errorf("Expected provider text, got %q", msg)
	}

	code, _ = f.call(t, http.MethodPut, "/api/secrets/update", "user", "user123",
		`{"secretName":"db","secretValue":"v2"}`)
	if code != http.StatusOK {
		t.Fatalf("Expected 200 on update, got %d", code)
	}

	for stage, want := range map[string]string{"": "v2", "AWSCURRENT": "v2", "AWSPREVIOUS": "v1"} {
		path := "/api/secrets/db"
		if stage != "" {
			path += "?versionStage=" + stage
		}
		code, body = f.call(t, http.MethodGet, path, "user", "user123", "")
		if code != http.StatusOK || body["secretValue"] != want {
			t.Errorf("Stage %q: expected %q, got %d %v", stage, want, code, body["secretValue"])
		}
	}

	code, body = f.call(t, http.MethodDelete, "/api/secrets/db", "user", "user123", "")
	if code != http.StatusOK || body["message"] != "Secret scheduled for deletion" {
		t.Fatalf("Expected scheduled deletion, got %d %v", code, body)
	}
	if _, ok := body["deletionDate"].(string); !ok {
		t.Errorf("Expected deletionDate, got %v", body)
	}

	code, body = f.call(t, http.MethodGet, "/api/secrets/db/exists", "user", "user123", "")
	if code != http.StatusOK || body["exists"] != true {
		t.Errorf("Expected secret scheduled for deletion to still exist, got %d %v", code, body)
	}

	code, body = f.call(t, http.MethodPost, "/api/secrets/create", "user", "user123",
		`{"secretName":"db","secretValue":"v3"}`)
	if code != http.StatusInternalServerError {
		t.Errorf("Expected 500 when recreating a secret scheduled for deletion, got %d", code)
	}
	if msg, _ := body["error"].(string); !strings.Contains(msg, "scheduled for deletion") {
		t.Errorf("Expected provider text, got %q", msg)
	}

	code, body = f.call(t, http.MethodDelete, "/api/secrets/db?forceDelete=true", "user", "user123", "")
	if code != http.StatusOK || body["message"] != "Secret deleted immediately" {
		t.Fatalf("Expected immediate deletion, got %d %v", code, body)
	}

	code, body = f.call(t, http.MethodGet, "/api/secrets/db/exists", "user", "user123", "")
	if code != http.StatusOK || body["exists"] != false {
		t.Errorf("Expected secret to be gone, got %d %v", code, body)
	}
}

func TestProviderOutageIsNotAFailure(t *testing.T) {
	f := newFixture(t)
	f.s3.FailWith = io.ErrUnexpectedEOF

	code, body := f.call(t, http.MethodGet, "/api/s3/bucket/docs/exists", "user", "user123", "")
	if code != http.StatusOK || body["exists"] != false {
		t.Errorf("Expected exists=false on probe error, got %d %v", code, body)
	}

	code, body = f.call(t, http.MethodGet, "/api/s3/list/docs", "user", "user123", "")
	if code != http.StatusInternalServerError || body["error"] != io.ErrUnexpectedEOF.Error() {
		t.Errorf("Expected 500 with provider text, got %d %v", code, body)
	}
}

func TestAnonymousAccess(t *testing.T) {
	f := newFixture(t)

	code, body := f.call(t, http.MethodGet, "/api/health", "", "", "")
	if code != http.StatusOK || body["status"] != "UP" {
		t.Errorf("Expected public health, got %d %v", code, body)
	}

	code, body = f.call(t, http.MethodGet, "/api/s3/list/docs", "", "", "")
	if code != http.StatusUnauthorized || body["status"] != "ERROR" {
		t.Errorf("Expected 401 envelope, got %d %v", code, body)
	}
}

// Package server wires the service adapters to HTTP. It owns the chi router,
// the middleware chain, request decoding and the mapping of adapter results
// onto response envelopes.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gurre/awsgate/auth"
	"github.com/gurre/awsgate/envelope"
	"github.com/gurre/awsgate/metrics"
	"github.com/gurre/awsgate/objectstore"
	"github.com/gurre/awsgate/probe"
	"github.com/gurre/awsgate/queue"
	"github.com/gurre/awsgate/secret"
	"github.com/gurre/awsgate/topic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// DefaultMaxBodyBytes caps request bodies when App.MaxBodyBytes is zero.
const DefaultMaxBodyBytes = 10 << 20

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-Id"

// QueueService is the queue operation the handlers need.
type QueueService interface {
	Send(ctx context.Context, req queue.SendRequest) (string, error)
}

// TopicService is the topic operations the handlers need.
type TopicService interface {
	Publish(ctx context.Context, req topic.PublishRequest) (string, error)
	Probe(ctx context.Context, topicArn string) probe.Result
}

// ObjectService is the object store operations the handlers need.
type ObjectService interface {
	Put(ctx context.Context, req objectstore.PutRequest) (string, error)
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Delete(ctx context.Context, bucket, key string) error
	List(ctx context.Context, bucket, prefix string) ([]string, error)
	Probe(ctx context.Context, bucket string) probe.Result
}

// SecretService is the secret operations the handlers need.
type SecretService interface {
	Create(ctx context.Context, req secret.Request) (string, error)
	Get(ctx context.Context, name, versionStage string) (string, error)
	Update(ctx context.Context, req secret.Request) (string, error)
	Delete(ctx context.Context, name string, force bool) (*time.Time, error)
	Probe(ctx context.Context, name string) probe.Result
}

var (
	_ QueueService  = (*queue.Adapter)(nil)
	_ TopicService  = (*topic.Adapter)(nil)
	_ ObjectService = (*objectstore.Adapter)(nil)
	_ SecretService = (*secret.Adapter)(nil)
)

// App holds the handler dependencies. Gate and Metrics are optional; without
// a Gate every route is open.
type App struct {
	Queue   QueueService
	Topic   TopicService
	Objects ObjectService
	Secrets SecretService

	Gate     *auth.Gate
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer

	Logger       logrus.FieldLogger
	Version      string
	MaxBodyBytes int64
}

type requestLogger struct {
	logrus.FieldLogger
}

func (l *requestLogger) Print(v ...interface{}) {
	l.FieldLogger.Info(v...)
}

// Router builds the chi router with the full middleware chain. The gate sits
// at the root so unknown routes and wrong methods are also subject to it.
func (app *App) Router() chi.Router {
	r := chi.NewRouter()

	logger := app.Logger.WithField("component", "api")
	r.Use(app.requestID)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: &requestLogger{logger}, NoColor: true}))
	r.Use(middleware.Recoverer)
	if app.Metrics != nil {
		r.Use(app.Metrics.Middleware)
	}
	if app.Gate != nil {
		r.Use(app.Gate.Middleware)
	}

	r.NotFound(app.notFound)
	r.MethodNotAllowed(app.methodNotAllowed)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", app.health)
		r.Get("/info", app.info)
		r.Post("/test", app.echo)

		r.Route("/sqs", func(r chi.Router) {
			r.Post("/send", app.sendMessage)
			r.Get("/health", app.serviceHealth("SQS"))
		})
		r.Route("/sns", func(r chi.Router) {
			r.Post("/publish", app.publish)
			r.Get("/topic/{topicArn}/exists", app.topicExists)
			r.Get("/health", app.serviceHealth("SNS"))
		})
		r.Route("/s3", func(r chi.Router) {
			r.Post("/upload", app.upload)
			r.Post("/upload-file", app.uploadFile)
			r.Get("/download/{bucketName}/*", app.download)
			r.Get("/list/{bucketName}", app.list)
			r.Get("/bucket/{bucketName}/exists", app.bucketExists)
			r.Get("/health", app.serviceHealth("S3"))
			r.Delete("/{bucketName}/*", app.deleteObject)
		})
		r.Route("/secrets", func(r chi.Router) {
			r.Post("/create", app.createSecret)
			r.Put("/update", app.updateSecret)
			r.Get("/health", app.serviceHealth("Secrets Manager"))
			r.Get("/{secretName}", app.getSecret)
			r.Get("/{secretName}/exists", app.secretExists)
			r.Delete("/{secretName}", app.deleteSecret)
		})
	})

	if app.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(app.Gatherer, promhttp.HandlerOpts{}))
	}

	return r
}

// requestID reuses a caller-supplied X-Request-Id of sane length or assigns a
// fresh UUID, and echoes it on the response.
func (app *App) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// log returns a logger carrying the request's method, URL and id.
func (app *App) log(r *http.Request) logrus.FieldLogger {
	return app.Logger.WithFields(logrus.Fields{
		"method":    r.Method,
		"url":       r.URL.String(),
		"requestID": middleware.GetReqID(r.Context()),
	})
}

func (app *App) maxBody() int64 {
	if app.MaxBodyBytes > 0 {
		return app.MaxBodyBytes
	}
	return DefaultMaxBodyBytes
}

// decode reads a JSON body into v. Any failure is a validation error.
func (app *App) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, app.maxBody()))
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return envelope.Invalid("request body exceeds %d bytes", tooLarge.Limit)
		case errors.Is(err, io.EOF):
			return envelope.Invalid("request body is required")
		default:
			return envelope.Invalid("malformed JSON body: %v", err)
		}
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return envelope.Invalid("request body must contain a single JSON object")
	}
	return nil
}

// respond writes a success envelope with fields.
func (app *App) respond(w http.ResponseWriter, r *http.Request, fields envelope.Fields) {
	if err := envelope.Write(w, http.StatusOK, envelope.Success(fields)); err != nil {
		app.log(r).WithError(err).Error("failed to write response")
	}
}

// fail writes a failure envelope whose status follows the fault type of err.
func (app *App) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	code, werr := envelope.WriteFailure(w, message, err)
	logger := app.log(r).WithError(err).WithField("status", code)
	if code >= http.StatusInternalServerError {
		logger.Error(message)
	} else {
		logger.Warn(message)
	}
	if werr != nil {
		app.log(r).WithError(werr).Error("failed to write response")
	}
}

// observe records an adapter call in the metrics, if enabled.
func (app *App) observe(operation string, start time.Time, err error) {
	if app.Metrics != nil {
		app.Metrics.ObserveOperation(operation, err, time.Since(start))
	}
}

// recordProbe logs and counts a probe outcome. ProbeError is logged at warn
// level; the response only ever says exists=false.
func (app *App) recordProbe(r *http.Request, target, resource string, res probe.Result) {
	if app.Metrics != nil {
		app.Metrics.RecordProbe(target, res)
	}
	logger := app.log(r).WithFields(logrus.Fields{"target": target, "resource": resource, "outcome": res.Outcome.String()})
	if res.Outcome == probe.ProbeError {
		logger.WithError(res.Err).Warn("existence probe failed")
		return
	}
	logger.Debug("existence probe")
}

// pathParam returns the decoded chi URL parameter. chi matches on RawPath
// when the request has one and on the already decoded Path otherwise, so only
// the former is unescaped here.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return raw
	}
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func (app *App) notFound(w http.ResponseWriter, r *http.Request) {
	app.fail(w, r, "Not Found", &envelope.NotFoundError{Method: r.Method, Path: r.URL.Path})
}

func (app *App) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	app.fail(w, r, "Method Not Allowed", &envelope.MethodNotAllowedError{Method: r.Method, Path: r.URL.Path})
}

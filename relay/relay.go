// Package relay accepts submission requests over HTTP and NATS and passes them
// to the gateway client.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"imspsms/imsp"
)

// Submitter sends one submission to the gateway. *imsp.Client implements it.
type Submitter interface {
	SubmitSM(ctx context.Context, overrides imsp.Fields) (*imsp.Result, error)
}

// Hook is called after every submission with its outcome.
type Hook func(ctx context.Context, result *imsp.Result, err error)

// Response is the JSON answer to a submission request.
type Response struct {
	Request   string     `json:"request,omitempty"`   // correlation id of the submission
	Records   [][]string `json:"records"`             // per-recipient response fields
	Malformed bool       `json:"malformed,omitempty"` // the gateway response had unusable records
	Error     string     `json:"error,omitempty"`     // submission or response error
}

// Relay connects request sources with a Submitter.
type Relay struct {
	Submitter Submitter
	Hook      Hook          // optional
	Timeout   time.Duration // limit for one submission, 0 - no limit
	Logger    *logrus.Entry
}

func (rl *Relay) logger() *logrus.Entry {
	if rl.Logger == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return rl.Logger
}

// Submit passes the fields to the Submitter and returns the answer with the
// HTTP status that describes it.
func (rl *Relay) Submit(ctx context.Context, fields imsp.Fields) (Response, int) {
	if rl.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rl.Timeout)
		defer cancel()
	}
	result, err := rl.Submitter.SubmitSM(ctx, fields)
	if rl.Hook != nil {
		rl.Hook(ctx, result, err)
	}
	if err != nil {
		return Response{Records: [][]string{}, Error: err.Error()}, errorStatus(err)
	}
	resp := Response{
		Request: result.RequestID,
		Records: make([][]string, 0, result.Len()),
	}
	for _, rec := range result.Records() {
		resp.Records = append(resp.Records, rec)
	}
	if err := result.Err(); err != nil {
		resp.Malformed = true
		resp.Error = err.Error()
	}
	return resp, http.StatusOK
}

// errorStatus maps submission errors to HTTP status codes: errors in the
// request itself are the caller's fault, anything else is a gateway failure.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, imsp.ErrUnknownField),
		errors.Is(err, imsp.ErrFixedField),
		errors.Is(err, imsp.ErrEncoding):
		return http.StatusBadRequest
	case errors.As(err, new(*imsp.FieldError)):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// Handler returns the HTTP interface of the relay:
//
//	POST /sms     submission fields as a form or a JSON object
//	GET  /health  liveness check
func (rl *Relay) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK")) //nolint:errcheck
	})
	r.Post("/sms", rl.serveSubmit)
	return r
}

func (rl *Relay) serveSubmit(w http.ResponseWriter, r *http.Request) {
	fields, err := requestFields(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Records: [][]string{}, Error: err.Error()})
		return
	}
	resp, status := rl.Submit(r.Context(), fields)
	rl.logger().WithFields(logrus.Fields{
		"request": resp.Request,
		"remote":  r.RemoteAddr,
		"status":  status,
	}).Info("HTTP submit")
	writeJSON(w, status, resp)
}

// requestFields reads the submission fields from a JSON object or a form.
func requestFields(r *http.Request) (imsp.Fields, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		return decodeFields(data)
	}
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	fields := make(imsp.Fields, len(r.PostForm))
	for key := range r.PostForm {
		fields[key] = r.PostForm.Get(key)
	}
	return fields, nil
}

// decodeFields reads a JSON object of submission fields. Values may be
// strings, numbers or booleans; numbers keep their JSON text.
func decodeFields(data []byte) (imsp.Fields, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	fields := make(imsp.Fields, len(raw))
	for key, value := range raw {
		var v interface{}
		dec := json.NewDecoder(bytes.NewReader(value))
		dec.UseNumber()
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		switch v := v.(type) {
		case string:
			fields[key] = v
		case json.Number:
			fields[key] = v.String()
		case bool:
			fields[key] = strconv.FormatBool(v)
		default:
			return nil, fmt.Errorf("field %s: unsupported JSON value %s", key, value)
		}
	}
	return fields, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

// Subscribe answers submission requests published on the NATS subject. The
// request payload is a JSON object with the submission fields, the reply is a
// JSON Response.
func (rl *Relay) Subscribe(nc *nats.Conn, subject string) (*nats.Subscription, error) {
	return nc.Subscribe(subject, func(msg *nats.Msg) {
		logEntry := rl.logger().WithField("subject", msg.Subject)
		var (
			resp   Response
			status = http.StatusBadRequest
		)
		if fields, err := decodeFields(msg.Data); err != nil {
			resp = Response{Records: [][]string{}, Error: err.Error()}
		} else {
			resp, status = rl.Submit(context.Background(), fields)
		}
		logEntry.WithFields(logrus.Fields{
			"request": resp.Request,
			"status":  status,
		}).Info("NATS submit")
		if msg.Reply == "" {
			return // nobody waits for the answer
		}
		data, err := json.Marshal(resp)
		if err != nil {
			logEntry.WithError(err).Error("NATS reply encoding error")
			return
		}
		if err := msg.Respond(data); err != nil {
			logEntry.WithError(err).Error("NATS reply error")
		}
	})
}

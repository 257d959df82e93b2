package imsp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kr/pretty"
	"github.com/sirupsen/logrus"
)

// gateway imitates the SubmitSM servlet: it answers every recipient with a
// success record and remembers the last received form.
type gateway struct {
	mu   sync.Mutex
	form url.Values
	path string
	ua   string
}

func (g *gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	g.mu.Lock()
	g.form = r.PostForm
	g.path = r.URL.Path
	g.ua = r.UserAgent()
	g.mu.Unlock()
	if r.PostForm.Get(KeyPassword) != "secret" {
		http.Error(w, "bad password", http.StatusForbidden)
		return
	}
	for i, to := range strings.Split(r.PostForm.Get(KeyToAddr), ",") {
		fmt.Fprintf(w, "%s|0|ID%d|Success<br>\r\n", to, i+1)
	}
}

func newTestClient(url string) *Client {
	client := NewClient("user", "secret")
	client.URL = url + "/imsp/sms/servlet/"
	client.Logger = logrus.NewEntry(logrus.New())
	client.Logger.Logger.SetLevel(logrus.DebugLevel)
	return client
}

func TestSubmitSM(t *testing.T) {
	gw := new(gateway)
	server := httptest.NewServer(gw)
	defer server.Close()
	client := newTestClient(server.URL)

	result, err := client.SubmitSM(context.Background(), Fields{
		KeyMsg:      "測試",
		KeyToAddr:   "0912345678, 0987654321, 0912345678",
		KeyMsgType:  "2",
		KeyDestPort: "1234",
	})
	if err != nil {
		t.Fatal(err)
	}
	if gw.path != "/imsp/sms/servlet/SubmitSM" {
		t.Errorf("path = %q", gw.path)
	}
	if gw.ua != UserAgent {
		t.Errorf("user agent = %q", gw.ua)
	}
	want := url.Values{
		"account":         {"user"},
		"password":        {"secret"},
		"from_addr_type":  {"0"},
		"from_addr":       {""},
		"to_addr_type":    {"0"},
		"to_addr":         {"0912345678,0987654321"},
		"msg_expire_time": {"0"},
		"msg_type":        {"2"},
		"msg_dcs":         {"8"},
		"msg_pclid":       {"0"},
		"msg_udhi":        {"0"},
		"msg":             {"6E2C8A66"},
		"dest_port":       {"04D2"},
	}
	if diff := pretty.Diff(gw.form, want); len(diff) > 0 {
		t.Errorf("form differs: %v", diff)
	}
	if result.Len() != 2 {
		t.Fatalf("got %d records: %v", result.Len(), result.Records())
	}
	rec, ok := result.Get("0987654321")
	if !ok || rec.MessageID() != "ID2" || rec.Description() != "Success" {
		t.Errorf("unexpected record %q", rec)
	}
	if result.RequestID == "" {
		t.Error("request id not set")
	}
}

func TestSendSM(t *testing.T) {
	gw := new(gateway)
	server := httptest.NewServer(gw)
	defer server.Close()
	client := newTestClient(server.URL)
	client.Defaults.FromAddr = "0900000000"

	result, err := client.SendSM(context.Background(), "Hi", "0912345678")
	if err != nil {
		t.Fatal(err)
	}
	if got := gw.form.Get(KeyMsg); got != "00480069" {
		t.Errorf("msg = %q", got)
	}
	if got := gw.form.Get(KeyFromAddr); got != "0900000000" {
		t.Errorf("from_addr = %q", got)
	}
	if _, ok := gw.form[KeyDestPort]; ok {
		t.Error("dest_port must be omitted for msg_type 0")
	}
	if result.Err() != nil {
		t.Error(result.Err())
	}
	pretty.Println(result.Records())
}

func TestSubmitSMHTTPError(t *testing.T) {
	server := httptest.NewServer(new(gateway))
	defer server.Close()
	client := newTestClient(server.URL)
	client.Defaults.Password = "wrong"

	_, err := client.SendSM(context.Background(), "Hi", "0912345678")
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	var trErr *TransportError
	if !errors.As(err, &trErr) || trErr.StatusCode != http.StatusForbidden || trErr.Body != "bad password" {
		t.Errorf("unexpected error %#v", err)
	}
}

func TestSubmitSMTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()
	client := newTestClient(server.URL)
	client.Poster = NewHTTPPoster(time.Second, 50*time.Millisecond)

	if _, err := client.SendSM(context.Background(), "Hi", "0912345678"); err == nil {
		t.Fatal("expected timeout error")
	}
}

type posterFunc func(ctx context.Context, endpoint string, fields url.Values) ([]byte, error)

func (f posterFunc) PostForm(ctx context.Context, endpoint string, fields url.Values) ([]byte, error) {
	return f(ctx, endpoint, fields)
}

func TestSubmitSMTransportErrorUnchanged(t *testing.T) {
	errDown := errors.New("network is down")
	client := NewClient("user", "secret")
	client.Poster = posterFunc(func(context.Context, string, url.Values) ([]byte, error) {
		return nil, errDown
	})
	_, err := client.SendSM(context.Background(), "Hi", "0912345678")
	if err != errDown {
		t.Errorf("expected the poster error, got %v", err)
	}
}

func TestSubmitSMMalformed(t *testing.T) {
	client := NewClient("user", "secret")
	client.Poster = posterFunc(func(context.Context, string, url.Values) ([]byte, error) {
		return []byte(""), nil
	})
	result, err := client.SendSM(context.Background(), "Hi", "0912345678")
	if err != nil {
		t.Fatal(err)
	}
	if result.Len() != 0 || !errors.Is(result.Err(), ErrMalformedResponse) {
		t.Errorf("unexpected result %v: %v", result, result.Err())
	}
}

func TestSubmitSMRejectsBeforeSending(t *testing.T) {
	var called bool
	client := NewClient("user", "secret")
	client.Poster = posterFunc(func(context.Context, string, url.Values) ([]byte, error) {
		called = true
		return nil, nil
	})
	ctx := context.Background()
	if _, err := client.SubmitSM(ctx, Fields{"to": "0912345678"}); !errors.Is(err, ErrUnknownField) {
		t.Errorf("expected ErrUnknownField, got %v", err)
	}
	if _, err := client.SubmitSM(ctx, Fields{KeyMsgDCS: "0"}); !errors.Is(err, ErrFixedField) {
		t.Errorf("expected ErrFixedField, got %v", err)
	}
	client.Legacy = true
	if _, err := client.SendSM(ctx, "😀", "0912345678"); !errors.Is(err, ErrEncoding) {
		t.Errorf("expected ErrEncoding, got %v", err)
	}
	if called {
		t.Error("poster must not be called")
	}
}

func TestSubmitSMConcurrent(t *testing.T) {
	gw := new(gateway)
	server := httptest.NewServer(gw)
	defer server.Close()
	client := newTestClient(server.URL)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			to := fmt.Sprintf("09123456%02d", i)
			result, err := client.SendSM(context.Background(), "Hi", to)
			if err != nil {
				t.Error(err)
				return
			}
			if _, ok := result.Get(to); !ok {
				t.Errorf("no record for %s: %v", to, result.Records())
			}
		}(i)
	}
	wg.Wait()
	if client.Defaults.Msg != "" || client.Defaults.ToAddr != nil {
		t.Error("defaults changed by submissions")
	}
}

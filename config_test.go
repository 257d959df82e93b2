package main

import (
	"testing"
	"time"

	"github.com/kr/pretty"
	"github.com/sirupsen/logrus"

	"imspsms/imsp"
)

func TestConfigFile(t *testing.T) {
	config, err := LoadConfig("config.yaml")
	if err != nil {
		t.Fatal(err)
	}
	pretty.Println(config)
	if config.NATS == nil || config.NATS.Subject != "imsp.submit" {
		t.Errorf("unexpected nats config %v", config.NATS)
	}
	if config.Gateway.Timeout != 30*time.Second {
		t.Errorf("timeout = %v", config.Gateway.Timeout)
	}
}

func TestConfigEnv(t *testing.T) {
	t.Setenv("IMSP_ACCOUNT", "12345")
	t.Setenv("IMSP_PASSWORD", "from-env")
	t.Setenv("IMSP_CONNECT_TIMEOUT", "5s")
	config, err := ParseConfig([]byte(`
gateway:
  account: "00000"
nats:
  url: nats://127.0.0.1:4222
`))
	if err != nil {
		t.Fatal(err)
	}
	gw := config.Gateway
	if gw.Account != "12345" || gw.Password != "from-env" || gw.ConnectTimeout != 5*time.Second {
		t.Errorf("unexpected gateway %# v", pretty.Formatter(gw))
	}
	if config.NATS.Subject != DefaultSubject {
		t.Errorf("subject = %q", config.NATS.Subject)
	}
}

func TestConfigMissingAccount(t *testing.T) {
	t.Setenv("IMSP_ACCOUNT", "")
	t.Setenv("IMSP_PASSWORD", "")
	if _, err := ParseConfig([]byte("listen: :8080\n")); err == nil {
		t.Error("expected error without account")
	}
}

func TestGatewayClient(t *testing.T) {
	gw := Gateway{
		Account:  "user",
		Password: "secret",
		Defaults: imsp.Fields{imsp.KeyFromAddr: "0900000000", imsp.KeyMsgType: "2"},
	}
	client, err := gw.Client(logrus.NewEntry(logrus.New()))
	if err != nil {
		t.Fatal(err)
	}
	if client.URL != imsp.DefaultURL {
		t.Errorf("url = %q", client.URL)
	}
	if client.Defaults.FromAddr != "0900000000" || client.Defaults.MsgType != 2 {
		t.Errorf("unexpected defaults %# v", pretty.Formatter(client.Defaults))
	}

	gw.Defaults = imsp.Fields{imsp.KeyMsgDCS: "0"}
	if _, err := gw.Client(logrus.NewEntry(logrus.New())); err == nil {
		t.Error("expected error: msg_dcs is fixed outside of legacy mode")
	}
	gw.Legacy = true
	if _, err := gw.Client(logrus.NewEntry(logrus.New())); err != nil {
		t.Error(err)
	}
}

func TestLogHook(t *testing.T) {
	config := &Config{Logs: map[string]string{"error": t.TempDir() + "/error.log"}}
	hook, err := config.LogHook()
	if err != nil {
		t.Fatal(err)
	}
	if hook == nil {
		t.Fatal("no hook")
	}
	config.Logs["loud"] = "loud.log"
	if _, err := config.LogHook(); err == nil {
		t.Error("expected error on unknown level")
	}
}

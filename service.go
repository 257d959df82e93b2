package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"imspsms/imsp"
	"imspsms/relay"
	"imspsms/sqlog"
)

// Service runs the configured submission interfaces.
type Service struct {
	Client *imsp.Client
	Relay  *relay.Relay
	Logger *logrus.Entry

	config *Config
	db     *sqlog.DB
	nc     *nats.Conn
	server *http.Server
}

// NewService initializes the gateway client and the submission journal.
func NewService(config *Config, logger *logrus.Entry) (*Service, error) {
	client, err := config.Gateway.Client(logger.WithField("gateway", config.Gateway.Account))
	if err != nil {
		return nil, err
	}
	s := &Service{
		Client: client,
		Logger: logger,
		config: config,
	}
	if config.MySQL != "" {
		if s.db, err = sqlog.Connect(config.MySQL); err != nil {
			return nil, err
		}
		if err = s.db.Init(context.Background()); err != nil {
			s.db.Close()
			return nil, err
		}
	}
	s.Relay = &relay.Relay{
		Submitter: client,
		Hook:      s.hook,
		Timeout:   config.Gateway.Timeout,
		Logger:    logger,
	}
	return s, nil
}

// hook writes the outcome of a submission to the journal and zabbix.
func (s *Service) hook(_ context.Context, result *imsp.Result, err error) {
	if zerr := s.config.Zabbix.Report(result, err); zerr != nil {
		s.Logger.WithError(zerr).Warning("Zabbix error")
	}
	if err != nil || s.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if jerr := s.db.Journal(ctx, result); jerr != nil {
		s.Logger.WithError(jerr).WithField("request", result.RequestID).Error("Journal error")
	}
}

// Send submits a single message outside of any interface.
func (s *Service) Send(ctx context.Context, msg, to string) (*imsp.Result, error) {
	result, err := s.Client.SendSM(ctx, msg, to)
	s.hook(ctx, result, err)
	return result, err
}

// Start starts the HTTP and NATS interfaces that are configured.
func (s *Service) Start() error {
	if s.config.NATS != nil {
		nc, err := nats.Connect(s.config.NATS.URL,
			nats.Name("imspsms"),
			nats.RetryOnFailedConnect(true),
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				s.Logger.WithError(err).Warning("NATS disconnected")
			}),
			nats.ReconnectHandler(func(_ *nats.Conn) {
				s.Logger.Info("NATS reconnected")
			}),
		)
		if err != nil {
			return err
		}
		if _, err = s.Relay.Subscribe(nc, s.config.NATS.Subject); err != nil {
			nc.Close()
			return err
		}
		s.nc = nc
		s.Logger.WithField("subject", s.config.NATS.Subject).Info("NATS subscribed")
	}
	if s.config.Listen != "" {
		s.server = &http.Server{
			Addr:         s.config.Listen,
			Handler:      s.Relay.Handler(),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: imsp.DefaultTimeout + 15*time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			s.Logger.WithField("addr", s.config.Listen).Info("HTTP started")
			err := s.server.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.Logger.WithError(err).Error("HTTP error")
			}
		}()
	}
	return nil
}

// Stop stops the interfaces and closes the journal.
func (s *Service) Stop() {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := s.server.Shutdown(ctx); err != nil {
			s.Logger.WithError(err).Error("HTTP shutdown error")
		}
		cancel()
		s.server = nil
	}
	if s.nc != nil {
		if err := s.nc.Drain(); err != nil {
			s.nc.Close()
		}
		s.nc = nil
	}
	if s.db != nil {
		s.db.Close()
		s.db = nil
	}
	s.Logger.Info("Service stopped")
}

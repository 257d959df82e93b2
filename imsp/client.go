// Package imsp implements a client for the SMS HTTP API of the Emome IMSP
// gateway: submission parameters are merged over per-account defaults,
// encoded to the gateway form fields, posted, and the delimited plain text
// answer is decoded into per-recipient records.
package imsp

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultURL is the servlet base address of the gateway.
const DefaultURL = "https://imsp.emome.net:4443/imsp/sms/servlet"

// Client submits short messages to the gateway. A Client is safe for
// concurrent use as long as its fields are not changed after the first call.
type Client struct {
	URL      string        // gateway servlet base address
	Defaults Params        // parameters every submission starts from
	Legacy   bool          // encode the message by msg_type and allow msg_dcs overrides
	Poster   Poster        // transport used to post the form
	Logger   *logrus.Entry // log output
}

// NewClient returns a Client for the given account that posts to DefaultURL
// over HTTP with the default timeouts.
func NewClient(account, password string) *Client {
	return &Client{
		URL:      DefaultURL,
		Defaults: DefaultParams(account, password),
		Poster:   NewHTTPPoster(DefaultTimeout, DefaultTimeout),
		Logger:   logrus.NewEntry(logrus.StandardLogger()),
	}
}

func (c *Client) logger() *logrus.Entry {
	if c.Logger == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return c.Logger
}

func (c *Client) poster() Poster {
	if c.Poster == nil {
		return defaultPoster
	}
	return c.Poster
}

var defaultPoster = NewHTTPPoster(DefaultTimeout, DefaultTimeout)

func (c *Client) endpoint() string {
	base := c.URL
	if base == "" {
		base = DefaultURL
	}
	return strings.TrimSuffix(base, "/") + "/SubmitSM"
}

// SubmitSM sends a message with the given overrides of the default parameters
// and returns the per-recipient outcome.
//
// Override errors and message encoding errors are returned before anything is
// sent. Errors of the Poster are returned unchanged. A malformed response is
// not an error: the result is returned and Result.Err describes the problem.
func (c *Client) SubmitSM(ctx context.Context, overrides Fields) (*Result, error) {
	params, err := c.Defaults.Merge(overrides, !c.Legacy)
	if err != nil {
		return nil, err
	}
	fields, err := Encode(params, c.Legacy)
	if err != nil {
		return nil, err
	}
	requestID := uuid.NewString()
	logEntry := c.logger().WithFields(logrus.Fields{
		"request": requestID,
		"to":      fields.Get(KeyToAddr),
		"type":    params.MsgType,
	})
	logEntry.Debugf("SubmitSM text: %q", params.Msg)
	body, err := c.poster().PostForm(ctx, c.endpoint(), fields)
	if err != nil {
		logEntry.WithError(err).Error("SubmitSM error")
		return nil, err
	}
	result := ParseResponse(body)
	result.RequestID = requestID
	if err := result.Err(); err != nil {
		logEntry.WithError(err).Warning("SubmitSM response")
	} else {
		logEntry.WithField("records", result.Len()).Info("SubmitSM")
	}
	return result, nil
}

// SendSM sends the message to one or more comma separated recipients. It is a
// shortcut for SubmitSM with only msg and to_addr set.
func (c *Client) SendSM(ctx context.Context, msg, to string) (*Result, error) {
	return c.SubmitSM(ctx, Fields{
		KeyMsg:    msg,
		KeyToAddr: to,
	})
}

// Package zabbix reports submission counters with zabbix_sender.
package zabbix

import (
	"os/exec"
	"strconv"

	"imspsms/imsp"
)

// Item keys sent after every submission.
const (
	KeyOK        = "imsp.submit.ok"        // recipients accepted in a well-formed response
	KeyMalformed = "imsp.submit.malformed" // responses without usable records
	KeyError     = "imsp.submit.error"     // rejected or failed submissions
)

// Command is the zabbix_sender executable.
var Command = "zabbix_sender"

type Log struct {
	Server string `yaml:"server"` // zabbix server address
	Host   string `yaml:"host"`   // host name registered in zabbix
}

// Send sends a single value. Nothing is sent when no server is configured.
func (z Log) Send(key, value string) error {
	if z.Server == "" {
		return nil
	}
	return exec.Command(Command,
		"-z", z.Server,
		"-s", z.Host,
		"-k", key,
		"-o", value).Run()
}

// Report sends the outcome of one submission.
func (z Log) Report(result *imsp.Result, err error) error {
	switch {
	case err != nil:
		return z.Send(KeyError, "1")
	case result.Err() != nil:
		return z.Send(KeyMalformed, "1")
	default:
		return z.Send(KeyOK, strconv.Itoa(result.Len()))
	}
}

package imsp

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ucs2 is the wide encoding expected by the gateway: UTF-16, big-endian, no BOM.
var ucs2 = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// reAddrSeparator splits a list of recipients written as a single string.
var reAddrSeparator = regexp.MustCompile(`,\s*`)

// SplitAddr splits a comma separated list of recipient addresses. Whitespace
// after a comma is dropped. A string without separators is returned as the
// only element, so an empty string gives a single empty address.
func SplitAddr(addrs string) []string {
	return reAddrSeparator.Split(addrs, -1)
}

// JoinAddr removes duplicate addresses, keeping the first occurrence, and joins
// them with commas in the form expected by the to_addr field.
func JoinAddr(addrs []string) string {
	seen := make(map[string]bool, len(addrs))
	list := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		if seen[addr] {
			continue
		}
		seen[addr] = true
		list = append(list, addr)
	}
	return strings.Join(list, ",")
}

// EncodeMessage converts the message text to UTF-16BE and returns its bytes as
// an uppercase hexadecimal string, two digits per byte.
func EncodeMessage(msg string) (string, error) {
	es, _, err := transform.String(ucs2.NewEncoder(), msg)
	if err != nil {
		return "", &EncodingError{Charset: "UTF-16BE", Err: err}
	}
	return strings.ToUpper(hex.EncodeToString([]byte(es))), nil
}

// DecodeMessage is the reverse of EncodeMessage.
func DecodeMessage(msg string) (string, error) {
	data, err := hex.DecodeString(msg)
	if err != nil {
		return "", fmt.Errorf("decode hex message: %w", err)
	}
	ds, _, err := transform.Bytes(ucs2.NewDecoder(), data)
	if err != nil {
		return "", fmt.Errorf("decode UTF-16BE message: %w", err)
	}
	return string(ds), nil
}

// EncodeMessageByType converts the message text depending on the message type
// code the way older gateway accounts expect it:
//
//	1 or less => Big5
//	2 or 3    => UTF-16BE as hex (same as EncodeMessage)
//
// Any other type leaves the text unchanged. Characters without a Big5
// representation give an EncodingError.
func EncodeMessageByType(msg string, msgType int) (string, error) {
	switch {
	case msgType <= 1:
		es, _, err := transform.String(traditionalchinese.Big5.NewEncoder(), msg)
		if err != nil {
			return "", &EncodingError{Charset: "Big5", Err: err}
		}
		return es, nil
	case msgType == 2, msgType == 3:
		return EncodeMessage(msg)
	default:
		return msg, nil
	}
}

// EncodeDestPort formats the destination port as 4 uppercase hexadecimal
// digits (1234 => 04D2). The port is only sent for message types 2 and 3; for
// other types ok is false and the field must be omitted.
func EncodeDestPort(port, msgType int) (value string, ok bool) {
	if msgType != 2 && msgType != 3 {
		return "", false
	}
	return fmt.Sprintf("%04X", port), true
}

// Encode converts the submission parameters to the form fields of a SubmitSM
// request. In legacy mode the message encoding is chosen by the message type
// and msg_dcs is sent as given, otherwise the message is always UTF-16BE hex
// with the Unicode data coding scheme.
func Encode(p Params, legacy bool) (url.Values, error) {
	var (
		msg string
		dcs = DCSUnicode
		err error
	)
	if legacy {
		msg, err = EncodeMessageByType(p.Msg, p.MsgType)
		dcs = p.MsgDCS
	} else {
		msg, err = EncodeMessage(p.Msg)
	}
	if err != nil {
		return nil, err
	}
	fields := url.Values{
		KeyAccount:       {p.Account},
		KeyPassword:      {p.Password},
		KeyFromAddrType:  {strconv.Itoa(p.FromAddrType)},
		KeyFromAddr:      {p.FromAddr},
		KeyToAddrType:    {strconv.Itoa(p.ToAddrType)},
		KeyToAddr:        {JoinAddr(p.ToAddr)},
		KeyMsgExpireTime: {strconv.Itoa(p.MsgExpireTime)},
		KeyMsgType:       {strconv.Itoa(p.MsgType)},
		KeyMsgDCS:        {strconv.Itoa(dcs)},
		KeyMsgPCLID:      {strconv.Itoa(p.MsgPCLID)},
		KeyMsgUDHI:       {strconv.Itoa(p.MsgUDHI)},
		KeyMsg:           {msg},
	}
	if port, ok := EncodeDestPort(p.DestPort, p.MsgType); ok {
		if p.DestPort < 0 || p.DestPort > MaxDestPort {
			return nil, &FieldError{Key: KeyDestPort, Err: ErrOutOfRange}
		}
		fields.Set(KeyDestPort, port)
	}
	return fields, nil
}

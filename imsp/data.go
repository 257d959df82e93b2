package imsp

import (
	"fmt"
	"strconv"
)

// Wire names of the SubmitSM form fields.
const (
	KeyAccount       = "account"
	KeyPassword      = "password"
	KeyFromAddrType  = "from_addr_type"
	KeyFromAddr      = "from_addr"
	KeyToAddrType    = "to_addr_type"
	KeyToAddr        = "to_addr"
	KeyMsgExpireTime = "msg_expire_time"
	KeyMsgType       = "msg_type"
	KeyMsgDCS        = "msg_dcs"
	KeyMsgPCLID      = "msg_pclid"
	KeyMsgUDHI       = "msg_udhi"
	KeyMsg           = "msg"
	KeyDestPort      = "dest_port"
)

// MaxDestPort is the largest destination port, ports are 16-bit.
const MaxDestPort = 0xFFFF

// DCSUnicode is the data coding scheme sent with every message outside of
// legacy mode, where the message body is always UCS-2.
const DCSUnicode = 8

// Fields is a partial set of submission parameters keyed by wire name.
type Fields map[string]string

// Params describes the complete set of parameters of one SubmitSM request.
type Params struct {
	Account       string   // gateway account
	Password      string   // gateway password
	FromAddrType  int      // type of the sender address
	FromAddr      string   // sender address
	ToAddrType    int      // type of the recipient addresses
	ToAddr        []string // one or more recipients
	MsgExpireTime int      // validity period
	MsgType       int      // 0/1 narrow text, 2/3 wide (hex) text
	MsgDCS        int      // data coding scheme
	MsgPCLID      int      // protocol identifier
	MsgUDHI       int      // user data header indicator
	Msg           string   // message text before encoding
	DestPort      int      // destination port before formatting
}

// DefaultParams returns the parameter template used for every submission of
// the given account.
func DefaultParams(account, password string) Params {
	return Params{
		Account:  account,
		Password: password,
	}
}

// Merge returns a copy of p with the overrides applied key by key. Keys that
// are not part of the SubmitSM request are rejected. When fixedDCS is set the
// msg_dcs field can not be overridden.
func (p Params) Merge(overrides Fields, fixedDCS bool) (Params, error) {
	merged := p
	merged.ToAddr = append([]string(nil), p.ToAddr...) // do not share the template slice
	for key, value := range overrides {
		if err := merged.set(key, value, fixedDCS); err != nil {
			return p, err
		}
	}
	return merged, nil
}

// set assigns a single field by its wire name.
func (p *Params) set(key, value string, fixedDCS bool) error {
	var dst *int // destination of an integer field
	switch key {
	case KeyAccount:
		p.Account = value
	case KeyPassword:
		p.Password = value
	case KeyFromAddr:
		p.FromAddr = value
	case KeyToAddr:
		p.ToAddr = SplitAddr(value)
	case KeyMsg:
		p.Msg = value
	case KeyFromAddrType:
		dst = &p.FromAddrType
	case KeyToAddrType:
		dst = &p.ToAddrType
	case KeyMsgExpireTime:
		dst = &p.MsgExpireTime
	case KeyMsgType:
		dst = &p.MsgType
	case KeyMsgPCLID:
		dst = &p.MsgPCLID
	case KeyMsgUDHI:
		dst = &p.MsgUDHI
	case KeyDestPort:
		dst = &p.DestPort
	case KeyMsgDCS:
		if fixedDCS {
			return &FieldError{Key: key, Err: ErrFixedField}
		}
		dst = &p.MsgDCS
	default:
		return &FieldError{Key: key, Err: ErrUnknownField}
	}
	if dst == nil {
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return &FieldError{Key: key, Err: err}
	}
	if key == KeyDestPort && (n < 0 || n > MaxDestPort) {
		return &FieldError{Key: key, Err: ErrOutOfRange}
	}
	*dst = n
	return nil
}

// Record is one line of the gateway response: the recipient address followed
// by the carrier status fields.
type Record []string

func (r Record) field(i int) string {
	if i < len(r) {
		return r[i]
	}
	return ""
}

// Addr returns the recipient address the record belongs to.
func (r Record) Addr() string { return r.field(0) }

// Code returns the gateway status code.
func (r Record) Code() string { return r.field(1) }

// MessageID returns the identifier the gateway assigned to the message.
func (r Record) MessageID() string { return r.field(2) }

// Description returns the human readable status text.
func (r Record) Description() string { return r.field(3) }

// Result holds the per-recipient outcome of a submission in the order the
// recipients first appeared in the response.
type Result struct {
	RequestID string // correlation id assigned by Client.SubmitSM

	records   []Record       // outcomes, one per distinct address
	index     map[string]int // address -> position in records
	malformed []string       // records that could not be keyed
}

// put stores the record under its address. A repeated address replaces the
// earlier record and keeps its position.
func (r *Result) put(rec Record) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[rec.Addr()]; ok {
		r.records[i] = rec
		return
	}
	r.index[rec.Addr()] = len(r.records)
	r.records = append(r.records, rec)
}

// Get returns the outcome for the given recipient address.
func (r *Result) Get(addr string) (Record, bool) {
	i, ok := r.index[addr]
	if !ok {
		return nil, false
	}
	return r.records[i], true
}

// Records returns all outcomes in response order.
func (r *Result) Records() []Record {
	return append([]Record(nil), r.records...)
}

// Len returns the number of distinct recipients in the result.
func (r *Result) Len() int { return len(r.records) }

// Err reports whether the response was malformed: it had no records at all or
// some of them had no recipient address. The records that could be parsed are
// still available.
func (r *Result) Err() error {
	if len(r.records) > 0 && len(r.malformed) == 0 {
		return nil
	}
	return &MalformedResponseError{
		Records:   len(r.records),
		Malformed: append([]string(nil), r.malformed...),
	}
}

func (r *Result) String() string {
	return fmt.Sprintf("%d records, %d malformed", len(r.records), len(r.malformed))
}

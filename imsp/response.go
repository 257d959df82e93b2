package imsp

import (
	"regexp"
	"strings"
)

var (
	reBreak    = regexp.MustCompile(`(?i)<br\s*/?>`) // record separator
	reTag      = regexp.MustCompile(`<[^>]*>`)       // any other markup
	lineBreaks = strings.NewReplacer("\r", "", "\n", "")
)

// ParseResponse parses the body returned by SubmitSM. The body is a list of
// records separated by <br>, each record a list of fields separated by "|"
// where the first field is the recipient address:
//
//	0912345678|0|MSGID1|Success<br>0987654321|0|MSGID2|Success<br>
//
// Markup other than <br> is removed. A repeated address replaces the earlier
// record. Records without an address and a body without any records are
// reported by Result.Err.
func ParseResponse(body []byte) *Result {
	result := new(Result)
	// CR/LF are not separators, so "\n" can mark the record boundaries
	text := lineBreaks.Replace(string(body))
	text = reBreak.ReplaceAllString(text, "\n")
	text = strings.TrimSpace(reTag.ReplaceAllString(text, ""))
	if text == "" {
		return result // nothing to parse
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		rec := Record(strings.Split(line, "|"))
		if rec.Addr() == "" {
			result.malformed = append(result.malformed, line)
			continue
		}
		result.put(rec)
	}
	return result
}

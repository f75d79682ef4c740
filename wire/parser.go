package wire

import (
	"strings"
)

// errNoParse is returned by tokenize when a quoted value is unterminated.
// Parse never returns this to callers directly: it reports the failure as an
// InvalidMessage *Error, since that is what the session state machine is
// required to raise (spec §4.1).
var errNoParse = MalformedError("no parse")

// Parse parses exactly one SAMv3 reply line (with or without the trailing
// newline) into a typed Response. A grammar failure - unrecognised verb,
// missing required key, unterminated quote - is reported as an
// InvalidMessage *Error.
func Parse(line string) (Response, *Error) {
	line = strings.TrimRight(line, "\r\n")
	tokens, err := tokenize(line)
	if err != nil {
		log.WithField("line", line).Debug("unterminated quote in reply line")
		return Response{}, InvalidMessageError("unterminated quoted value")
	}
	if len(tokens) < 2 {
		return Response{}, InvalidMessageError("line too short: " + line)
	}

	verb, subverb := tokens[0], tokens[1]
	kv := parseKV(tokens[2:])

	switch verb {
	case "HELLO":
		if subverb != "REPLY" {
			return Response{}, InvalidMessageError("expected HELLO REPLY, got " + subverb)
		}
		return parseHello(kv)
	case "SESSION":
		if subverb != "STATUS" {
			return Response{}, InvalidMessageError("expected SESSION STATUS, got " + subverb)
		}
		return parseSessionStatus(kv)
	case "STREAM":
		if subverb != "STATUS" {
			return Response{}, InvalidMessageError("expected STREAM STATUS, got " + subverb)
		}
		return parseStream(kv)
	case "NAMING":
		if subverb != "REPLY" {
			return Response{}, InvalidMessageError("expected NAMING REPLY, got " + subverb)
		}
		return parseNamingLookup(kv)
	case "DEST":
		if subverb != "REPLY" {
			return Response{}, InvalidMessageError("expected DEST REPLY, got " + subverb)
		}
		return parseDestGen(kv)
	default:
		return Response{}, InvalidMessageError("unrecognised verb: " + verb)
	}
}

// tokenize splits a reply line on unquoted spaces, honouring '"'-quoted
// values with '\"' and '\\' escapes, per the grammar in spec §4.1.
func tokenize(line string) ([]string, error) {
	var tokens []string
	var cur strings.Builder
	inQuotes := false
	escaped := false

	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case escaped:
			cur.WriteByte(c)
			escaped = false
		case c == '\\' && inQuotes:
			escaped = true
		case c == '"':
			inQuotes = !inQuotes
		case c == ' ' && !inQuotes:
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	if inQuotes {
		return nil, errNoParse
	}
	flush()
	return tokens, nil
}

// parseKV splits "KEY=VALUE" tokens into a map. Duplicate keys take the last
// occurrence, per spec §4.1.
func parseKV(tokens []string) map[string]string {
	kv := make(map[string]string, len(tokens))
	for _, t := range tokens {
		if idx := strings.IndexByte(t, '='); idx >= 0 {
			kv[t[:idx]] = t[idx+1:]
		}
	}
	return kv
}

func parseHello(kv map[string]string) (Response, *Error) {
	result, ok := kv["RESULT"]
	if !ok {
		return Response{}, InvalidMessageError("HELLO REPLY missing RESULT")
	}
	if result == "OK" {
		version, ok := kv["VERSION"]
		if !ok {
			// Open question resolved per spec §9: missing VERSION on
			// success is InvalidMessage, not a malformed-but-successful hello.
			return Response{}, InvalidMessageError("HELLO REPLY RESULT=OK missing VERSION")
		}
		return Response{Kind: KindHello, Hello: &HelloReply{Version: version}}, nil
	}
	re, known := classifyResult(result, kv["MESSAGE"])
	if !known {
		return Response{}, InvalidMessageError("HELLO REPLY unrecognised RESULT=" + result)
	}
	return Response{Kind: KindHello, Hello: &HelloReply{Err: re}}, nil
}

func parseSessionStatus(kv map[string]string) (Response, *Error) {
	result, ok := kv["RESULT"]
	if !ok {
		return Response{}, InvalidMessageError("SESSION STATUS missing RESULT")
	}
	if result == "OK" {
		if dest, ok := kv["DESTINATION"]; ok {
			return Response{Kind: KindSessionStatus, SessionStatus: &SessionStatusReply{Destination: dest}}, nil
		}
		if id, ok := kv["ID"]; ok {
			return Response{Kind: KindSessionStatus, SessionStatus: &SessionStatusReply{SessionID: id}}, nil
		}
		return Response{}, InvalidMessageError("SESSION STATUS RESULT=OK missing DESTINATION and ID")
	}
	re, known := classifyResult(result, kv["MESSAGE"])
	if !known {
		return Response{}, InvalidMessageError("SESSION STATUS unrecognised RESULT=" + result)
	}
	return Response{Kind: KindSessionStatus, SessionStatus: &SessionStatusReply{Err: re}}, nil
}

func parseStream(kv map[string]string) (Response, *Error) {
	result, ok := kv["RESULT"]
	if !ok {
		return Response{}, InvalidMessageError("STREAM STATUS missing RESULT")
	}
	if result == "OK" {
		return Response{Kind: KindStream, Stream: &StreamReply{}}, nil
	}
	re, known := classifyResult(result, kv["MESSAGE"])
	if !known {
		return Response{}, InvalidMessageError("STREAM STATUS unrecognised RESULT=" + result)
	}
	return Response{Kind: KindStream, Stream: &StreamReply{Err: re}}, nil
}

func parseNamingLookup(kv map[string]string) (Response, *Error) {
	result, ok := kv["RESULT"]
	if !ok {
		return Response{}, InvalidMessageError("NAMING REPLY missing RESULT")
	}
	if result == "OK" {
		value, ok := kv["VALUE"]
		if !ok {
			return Response{}, InvalidMessageError("NAMING REPLY RESULT=OK missing VALUE")
		}
		return Response{Kind: KindNamingLookup, NamingLookup: &NamingLookupReply{Destination: value}}, nil
	}
	re, known := classifyResult(result, kv["MESSAGE"])
	if !known {
		return Response{}, InvalidMessageError("NAMING REPLY unrecognised RESULT=" + result)
	}
	return Response{Kind: KindNamingLookup, NamingLookup: &NamingLookupReply{Err: re}}, nil
}

func parseDestGen(kv map[string]string) (Response, *Error) {
	pub, ok := kv["PUB"]
	if !ok {
		return Response{}, InvalidMessageError("DEST REPLY missing PUB")
	}
	priv, ok := kv["PRIV"]
	if !ok {
		return Response{}, InvalidMessageError("DEST REPLY missing PRIV")
	}
	return Response{Kind: KindDestGen, DestGen: &DestGenReply{Destination: pub, PrivateKey: priv}}, nil
}

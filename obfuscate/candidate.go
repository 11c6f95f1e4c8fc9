// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package obfuscate

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrParse is wrapped by every candidate parse failure.
var ErrParse = errors.New("malformed candidate")

// ParseError describes why a candidate line could not be parsed.
type ParseError struct {
	Line   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s: %q", ErrParse, e.Reason, e.Line)
}

func (e *ParseError) Unwrap() error { return ErrParse }

// CandidateType is the ICE candidate type.
type CandidateType string

const (
	CandidateHost  CandidateType = "host"
	CandidateSrflx CandidateType = "srflx"
	CandidatePrflx CandidateType = "prflx"
	CandidateRelay CandidateType = "relay"
)

// Attribute is a trailing key/value pair of a candidate line that has
// no dedicated field (ufrag, generation, network-id, ...).
type Attribute struct {
	Key   string
	Value string
}

// Candidate is a parsed ICE candidate line (RFC 8839 §5.1).
type Candidate struct {
	Foundation     string
	Component      int
	Protocol       string
	Priority       uint32
	Address        string
	Port           int
	Type           CandidateType
	RelatedAddress string
	RelatedPort    int
	TCPType        string
	Extensions     []Attribute

	// attributePrefix is "a=" when the line was an SDP attribute.
	attributePrefix bool
	hasRelatedPort  bool
}

const (
	candidatePrefix = "candidate:"
	attributePrefix = "a="
)

// ParseCandidate parses a candidate line, with or without the SDP
// "a=" attribute prefix.
func ParseCandidate(line string) (Candidate, error) {
	var candidate Candidate
	body := strings.TrimSpace(line)
	if strings.HasPrefix(body, attributePrefix) {
		candidate.attributePrefix = true
		body = body[len(attributePrefix):]
	}
	if !strings.HasPrefix(strings.ToLower(body), candidatePrefix) {
		return Candidate{}, &ParseError{Line: line, Reason: "missing candidate: prefix"}
	}
	fields := strings.Fields(body[len(candidatePrefix):])
	if len(fields) < 8 {
		return Candidate{}, &ParseError{Line: line, Reason: fmt.Sprintf("%d fields, want at least 8", len(fields))}
	}

	candidate.Foundation = fields[0]
	component, err := strconv.Atoi(fields[1])
	if err != nil {
		return Candidate{}, &ParseError{Line: line, Reason: "component is not an integer"}
	}
	candidate.Component = component
	candidate.Protocol = fields[2]
	priority, err := strconv.ParseUint(fields[3], 10, 32)
	if err != nil {
		return Candidate{}, &ParseError{Line: line, Reason: "priority is not a 32-bit unsigned integer"}
	}
	candidate.Priority = uint32(priority)
	candidate.Address = fields[4]
	port, err := parsePort(fields[5])
	if err != nil {
		return Candidate{}, &ParseError{Line: line, Reason: "port: " + err.Error()}
	}
	candidate.Port = port
	if fields[6] != "typ" {
		return Candidate{}, &ParseError{Line: line, Reason: fmt.Sprintf("expected typ, got %q", fields[6])}
	}
	switch CandidateType(fields[7]) {
	case CandidateHost, CandidateSrflx, CandidatePrflx, CandidateRelay:
		candidate.Type = CandidateType(fields[7])
	default:
		return Candidate{}, &ParseError{Line: line, Reason: fmt.Sprintf("unknown candidate type %q", fields[7])}
	}

	rest := fields[8:]
	if len(rest)%2 != 0 {
		return Candidate{}, &ParseError{Line: line, Reason: "trailing attribute without a value"}
	}
	for i := 0; i < len(rest); i += 2 {
		key, value := rest[i], rest[i+1]
		switch key {
		case "raddr":
			candidate.RelatedAddress = value
		case "rport":
			relatedPort, err := parsePort(value)
			if err != nil {
				return Candidate{}, &ParseError{Line: line, Reason: "rport: " + err.Error()}
			}
			candidate.RelatedPort = relatedPort
			candidate.hasRelatedPort = true
		case "tcptype":
			candidate.TCPType = value
		default:
			candidate.Extensions = append(candidate.Extensions, Attribute{Key: key, Value: value})
		}
	}
	return candidate, nil
}

func parsePort(value string) (int, error) {
	port, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	if port < 0 || port > 65535 {
		return 0, fmt.Errorf("%d out of range", port)
	}
	return port, nil
}

// String serializes the candidate back to a single line. The "a="
// prefix is kept if the parsed line had it.
func (c Candidate) String() string {
	fields := []string{
		c.Foundation,
		strconv.Itoa(c.Component),
		c.Protocol,
		strconv.FormatUint(uint64(c.Priority), 10),
		c.Address,
		strconv.Itoa(c.Port),
		"typ",
		string(c.Type),
	}
	if c.RelatedAddress != "" {
		fields = append(fields, "raddr", c.RelatedAddress)
	}
	if c.RelatedAddress != "" || c.hasRelatedPort {
		fields = append(fields, "rport", strconv.Itoa(c.RelatedPort))
	}
	if c.TCPType != "" {
		fields = append(fields, "tcptype", c.TCPType)
	}
	for _, attribute := range c.Extensions {
		fields = append(fields, attribute.Key, attribute.Value)
	}

	line := candidatePrefix + strings.Join(fields, " ")
	if c.attributePrefix {
		line = attributePrefix + line
	}
	return line
}

// Redact returns a copy of c with its addresses redacted: the own
// address unless the candidate is a relay, and the related address
// always.
func (c Candidate) Redact() Candidate {
	if c.Type != CandidateRelay {
		c.Address = Address(c.Address)
	}
	if c.RelatedAddress != "" {
		c.RelatedAddress = Address(c.RelatedAddress)
	}
	c.Extensions = append([]Attribute(nil), c.Extensions...)
	return c
}

// ObfuscateCandidate parses, redacts and re-serializes a candidate
// line. A malformed line returns an error wrapping ErrParse; the caller
// decides whether to drop the payload.
func ObfuscateCandidate(line string) (string, error) {
	candidate, err := ParseCandidate(line)
	if err != nil {
		return "", err
	}
	return candidate.Redact().String(), nil
}

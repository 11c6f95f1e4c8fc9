// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package peer

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pion/webrtc/v4"
	"github.com/tidwall/jsonc"
)

// BrowserType is the create event's browserType. Collectors expect a
// browser family there; connections traced here run in pion.
const BrowserType = "pion"

// SanitizeConfiguration returns the traced form of a peer connection
// configuration. ICE server credentials are never included. A nil
// configuration is reported as {"nullConfig": true}.
func SanitizeConfiguration(config *webrtc.Configuration) map[string]any {
	if config == nil {
		return map[string]any{"nullConfig": true, "browserType": BrowserType}
	}

	servers := make([]any, 0, len(config.ICEServers))
	for _, server := range config.ICEServers {
		urls := make([]any, 0, len(server.URLs))
		for _, url := range server.URLs {
			urls = append(urls, url)
		}
		entry := map[string]any{"urls": urls}
		if server.Username != "" {
			entry["username"] = server.Username
		}
		servers = append(servers, entry)
	}

	out := map[string]any{
		"iceServers":         servers,
		"iceTransportPolicy": config.ICETransportPolicy.String(),
		"bundlePolicy":       config.BundlePolicy.String(),
		"rtcpMuxPolicy":      config.RTCPMuxPolicy.String(),
		"browserType":        BrowserType,
	}
	if config.ICECandidatePoolSize > 0 {
		out["iceCandidatePoolSize"] = int(config.ICECandidatePoolSize)
	}
	if config.PeerIdentity != "" {
		out["peerIdentity"] = config.PeerIdentity
	}
	return out
}

// iceFile is the on-disk ICE configuration, in the shape of the
// browser RTCConfiguration dictionary.
type iceFile struct {
	ICEServers []struct {
		URLs       stringList `json:"urls"`
		Username   string     `json:"username"`
		Credential string     `json:"credential"`
	} `json:"iceServers"`
	ICETransportPolicy string `json:"iceTransportPolicy"`
}

// stringList accepts a JSON string or array of strings.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = []string{single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("urls must be a string or a list of strings: %w", err)
	}
	*l = list
	return nil
}

// LoadICEConfig reads a JSONC (JSON with comments and trailing commas)
// ICE configuration file.
//
//	{
//	  // STUN for reflexive candidates
//	  "iceServers": [
//	    {"urls": "stun:stun.example.org:3478"},
//	    {"urls": ["turn:turn.example.org"], "username": "u", "credential": "p"},
//	  ],
//	  "iceTransportPolicy": "all",
//	}
func LoadICEConfig(path string) (webrtc.Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return webrtc.Configuration{}, fmt.Errorf("reading ICE config: %w", err)
	}
	return ParseICEConfig(data)
}

// ParseICEConfig parses JSONC ICE configuration.
func ParseICEConfig(data []byte) (webrtc.Configuration, error) {
	var file iceFile
	if err := json.Unmarshal(jsonc.ToJSON(data), &file); err != nil {
		return webrtc.Configuration{}, fmt.Errorf("parsing ICE config: %w", err)
	}

	var config webrtc.Configuration
	for i, server := range file.ICEServers {
		if len(server.URLs) == 0 {
			return webrtc.Configuration{}, fmt.Errorf("ICE server %d has no urls", i)
		}
		config.ICEServers = append(config.ICEServers, webrtc.ICEServer{
			URLs:       server.URLs,
			Username:   server.Username,
			Credential: server.Credential,
		})
	}
	switch file.ICETransportPolicy {
	case "", "all":
		config.ICETransportPolicy = webrtc.ICETransportPolicyAll
	case "relay":
		config.ICETransportPolicy = webrtc.ICETransportPolicyRelay
	default:
		return webrtc.Configuration{}, fmt.Errorf("unknown iceTransportPolicy %q (want all or relay)", file.ICETransportPolicy)
	}
	return config, nil
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package peer

import (
	"github.com/pion/webrtc/v4"
)

// CandidatePayload is the payload of addIceCandidate and
// onicecandidate.
type CandidatePayload struct {
	Candidate        string  `json:"candidate"`
	SDPMid           *string `json:"sdpMid,omitempty"`
	SDPMLineIndex    *uint16 `json:"sdpMLineIndex,omitempty"`
	UsernameFragment *string `json:"usernameFragment,omitempty"`
}

// NewCandidatePayload converts a pion candidate init.
func NewCandidatePayload(init webrtc.ICECandidateInit) CandidatePayload {
	return CandidatePayload{
		Candidate:        init.Candidate,
		SDPMid:           init.SDPMid,
		SDPMLineIndex:    init.SDPMLineIndex,
		UsernameFragment: init.UsernameFragment,
	}
}

func (p CandidatePayload) CandidateLine() string { return p.Candidate }

func (p CandidatePayload) WithCandidateLine(line string) any {
	p.Candidate = line
	return p
}

// DescriptionPayload is the payload of set*Description and
// create*OnSuccess.
type DescriptionPayload struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// NewDescriptionPayload converts a pion session description.
func NewDescriptionPayload(description webrtc.SessionDescription) DescriptionPayload {
	return DescriptionPayload{Type: description.Type.String(), SDP: description.SDP}
}

func (p DescriptionPayload) SessionDescription() string { return p.SDP }

func (p DescriptionPayload) WithSessionDescription(text string) any {
	p.SDP = text
	return p
}

// TrackInfo describes a media track.
type TrackInfo struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	StreamID string `json:"streamId,omitempty"`
	RID      string `json:"rid,omitempty"`
}

// track is the part of webrtc.TrackLocal and *webrtc.TrackRemote
// TrackInfo needs.
type track interface {
	ID() string
	StreamID() string
	Kind() webrtc.RTPCodecType
	RID() string
}

// DescribeTrack returns the TrackInfo of a local or remote track.
func DescribeTrack(t track) TrackInfo {
	return TrackInfo{
		ID:       t.ID(),
		Kind:     t.Kind().String(),
		StreamID: t.StreamID(),
		RID:      t.RID(),
	}
}

// StreamInfo describes a group of tracks sharing a stream id.
type StreamInfo struct {
	ID     string      `json:"id"`
	Tracks []TrackInfo `json:"tracks"`
}

// DescribeStream returns the StreamInfo for tracks under id.
func DescribeStream(id string, tracks ...webrtc.TrackLocal) StreamInfo {
	info := StreamInfo{ID: id, Tracks: make([]TrackInfo, 0, len(tracks))}
	for _, t := range tracks {
		info.Tracks = append(info.Tracks, DescribeTrack(t))
	}
	return info
}

// ChannelInfo describes a data channel.
type ChannelInfo struct {
	Label    string  `json:"label"`
	ID       *uint16 `json:"id,omitempty"`
	Ordered  bool    `json:"ordered"`
	Protocol string  `json:"protocol,omitempty"`
}

// DescribeChannel returns the ChannelInfo of channel.
func DescribeChannel(channel *webrtc.DataChannel) ChannelInfo {
	return ChannelInfo{
		Label:    channel.Label(),
		ID:       channel.ID(),
		Ordered:  channel.Ordered(),
		Protocol: channel.Protocol(),
	}
}

// channelInitPayload is the traced form of createDataChannel options.
func channelInitPayload(options *webrtc.DataChannelInit) map[string]any {
	payload := map[string]any{}
	if options == nil {
		return payload
	}
	if options.Ordered != nil {
		payload["ordered"] = *options.Ordered
	}
	if options.MaxPacketLifeTime != nil {
		payload["maxPacketLifeTime"] = *options.MaxPacketLifeTime
	}
	if options.MaxRetransmits != nil {
		payload["maxRetransmits"] = *options.MaxRetransmits
	}
	if options.Protocol != nil {
		payload["protocol"] = *options.Protocol
	}
	if options.Negotiated != nil {
		payload["negotiated"] = true
		payload["id"] = *options.Negotiated
	}
	return payload
}

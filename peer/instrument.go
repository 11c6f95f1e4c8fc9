// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package peer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/bureau-foundation/rtctrace/sampler"
	"github.com/bureau-foundation/rtctrace/trace"
)

// Connection is the peer connection API Instrument wraps.
// *webrtc.PeerConnection implements it.
type Connection interface {
	CreateOffer(options *webrtc.OfferOptions) (webrtc.SessionDescription, error)
	CreateAnswer(options *webrtc.AnswerOptions) (webrtc.SessionDescription, error)
	SetLocalDescription(description webrtc.SessionDescription) error
	SetRemoteDescription(description webrtc.SessionDescription) error
	AddICECandidate(candidate webrtc.ICECandidateInit) error
	CreateDataChannel(label string, options *webrtc.DataChannelInit) (*webrtc.DataChannel, error)
	AddTrack(track webrtc.TrackLocal) (*webrtc.RTPSender, error)
	RemoveTrack(sender *webrtc.RTPSender) error
	GetStats() webrtc.StatsReport
	SignalingState() webrtc.SignalingState
	Close() error

	OnICECandidate(handler func(*webrtc.ICECandidate))
	OnTrack(handler func(*webrtc.TrackRemote, *webrtc.RTPReceiver))
	OnDataChannel(handler func(*webrtc.DataChannel))
	OnNegotiationNeeded(handler func())
	OnSignalingStateChange(handler func(webrtc.SignalingState))
	OnICEConnectionStateChange(handler func(webrtc.ICEConnectionState))
	OnICEGatheringStateChange(handler func(webrtc.ICEGatheringState))
	OnConnectionStateChange(handler func(webrtc.PeerConnectionState))
}

// Tracer is the part of *tracer.Tracer the decorator uses.
type Tracer interface {
	Trace(eventName, sessionID string, args ...any)
	NewSessionID() string
	EndSession(sessionID string)
}

// Sampler is the part of *sampler.Sampler the decorator uses.
type Sampler interface {
	Start(ctx context.Context, sessionID string, source sampler.Source, interval time.Duration) error
	Stop(sessionID string)
}

// Options configures an instrumented connection.
type Options struct {
	// Configuration is the configuration the connection was created
	// with, traced (without credentials) as the create event. Nil is
	// traced as {"nullConfig": true}.
	Configuration *webrtc.Configuration

	// Constraints, when non-nil, are traced as the constraints event.
	Constraints map[string]any

	// SamplingInterval is the statistics sampling period. Zero
	// disables sampling.
	SamplingInterval time.Duration

	Logger *slog.Logger
}

// Instrumented is a traced peer connection.
type Instrumented struct {
	connection Connection
	tracer     Tracer
	sampler    Sampler
	sessionID  string
	logger     *slog.Logger

	handlersMu sync.Mutex
	handlers   handlers

	stopOnce sync.Once
}

type handlers struct {
	iceCandidate       func(*webrtc.ICECandidate)
	track              func(*webrtc.TrackRemote, *webrtc.RTPReceiver)
	dataChannel        func(*webrtc.DataChannel)
	negotiationNeeded  func()
	signalingState     func(webrtc.SignalingState)
	iceConnectionState func(webrtc.ICEConnectionState)
	iceGatheringState  func(webrtc.ICEGatheringState)
	connectionState    func(webrtc.PeerConnectionState)
}

// Instrument starts tracing connection under a new session id. It
// traces the create and constraints events, installs the event
// handlers and starts sampling.
func Instrument(connection Connection, tracer Tracer, sampler Sampler, options Options) *Instrumented {
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	i := &Instrumented{
		connection: connection,
		tracer:     tracer,
		sampler:    sampler,
		sessionID:  tracer.NewSessionID(),
		logger:     logger,
	}

	i.trace(trace.EventCreate, SanitizeConfiguration(options.Configuration))
	if options.Constraints != nil {
		i.trace(trace.EventConstraints, options.Constraints)
	}
	i.installHandlers()

	if options.SamplingInterval > 0 {
		err := sampler.Start(context.Background(), i.sessionID, NewStatsSource(connection), options.SamplingInterval)
		if err != nil {
			logger.Error("statistics sampling not started", "session", i.sessionID, "error", err)
		}
	}
	return i
}

// SessionID returns the connection's trace session id.
func (i *Instrumented) SessionID() string { return i.sessionID }

// Connection returns the wrapped connection. Calls made on it directly
// are not traced.
func (i *Instrumented) Connection() Connection { return i.connection }

func (i *Instrumented) trace(eventName string, args ...any) {
	i.tracer.Trace(eventName, i.sessionID, args...)
}

// traceResult traces the outcome of an asynchronous call: the success
// event with args, or the failure event with the error text.
func (i *Instrumented) traceResult(eventName string, err error, args ...any) {
	if err != nil {
		i.trace(eventName+trace.FailureSuffix, err.Error())
		return
	}
	i.trace(eventName+trace.SuccessSuffix, args...)
}

// stop ends sampling and discards the session's diff state. Later
// calls do nothing.
func (i *Instrumented) stop() {
	i.stopOnce.Do(func() {
		i.sampler.Stop(i.sessionID)
		i.tracer.EndSession(i.sessionID)
	})
}

func (i *Instrumented) CreateOffer(options *webrtc.OfferOptions) (webrtc.SessionDescription, error) {
	if options != nil {
		i.trace(trace.EventCreateOffer, map[string]any{"iceRestart": options.ICERestart})
	} else {
		i.trace(trace.EventCreateOffer)
	}
	offer, err := i.connection.CreateOffer(options)
	i.traceResult(trace.EventCreateOffer, err, NewDescriptionPayload(offer))
	return offer, err
}

func (i *Instrumented) CreateAnswer(options *webrtc.AnswerOptions) (webrtc.SessionDescription, error) {
	i.trace(trace.EventCreateAnswer)
	answer, err := i.connection.CreateAnswer(options)
	i.traceResult(trace.EventCreateAnswer, err, NewDescriptionPayload(answer))
	return answer, err
}

func (i *Instrumented) SetLocalDescription(description webrtc.SessionDescription) error {
	i.trace(trace.EventSetLocalDescription, NewDescriptionPayload(description))
	err := i.connection.SetLocalDescription(description)
	i.traceResult(trace.EventSetLocalDescription, err)
	return err
}

func (i *Instrumented) SetRemoteDescription(description webrtc.SessionDescription) error {
	i.trace(trace.EventSetRemoteDescription, NewDescriptionPayload(description))
	err := i.connection.SetRemoteDescription(description)
	i.traceResult(trace.EventSetRemoteDescription, err)
	return err
}

func (i *Instrumented) AddICECandidate(candidate webrtc.ICECandidateInit) error {
	i.trace(trace.EventAddIceCandidate, NewCandidatePayload(candidate))
	err := i.connection.AddICECandidate(candidate)
	i.traceResult(trace.EventAddIceCandidate, err)
	return err
}

func (i *Instrumented) CreateDataChannel(label string, options *webrtc.DataChannelInit) (*webrtc.DataChannel, error) {
	i.trace(trace.EventCreateDataChannel, label, channelInitPayload(options))
	channel, err := i.connection.CreateDataChannel(label, options)
	if err != nil {
		i.trace(trace.EventCreateDataChannel+trace.FailureSuffix, err.Error())
	}
	return channel, err
}

func (i *Instrumented) AddTrack(track webrtc.TrackLocal) (*webrtc.RTPSender, error) {
	i.trace(trace.EventAddTrack, DescribeTrack(track))
	sender, err := i.connection.AddTrack(track)
	if err != nil {
		i.trace(trace.EventAddTrack+trace.FailureSuffix, err.Error())
	}
	return sender, err
}

func (i *Instrumented) RemoveTrack(sender *webrtc.RTPSender) error {
	if track := sender.Track(); track != nil {
		i.trace(trace.EventRemoveTrack, DescribeTrack(track))
	} else {
		i.trace(trace.EventRemoveTrack)
	}
	err := i.connection.RemoveTrack(sender)
	if err != nil {
		i.trace(trace.EventRemoveTrack+trace.FailureSuffix, err.Error())
	}
	return err
}

// GetStats returns the connection's statistics. It is not traced;
// sampling traces statistics.
func (i *Instrumented) GetStats() webrtc.StatsReport {
	return i.connection.GetStats()
}

func (i *Instrumented) SignalingState() webrtc.SignalingState {
	return i.connection.SignalingState()
}

// Close stops sampling, traces the close call and closes the
// connection.
func (i *Instrumented) Close() error {
	i.stop()
	i.trace(trace.EventClose)
	err := i.connection.Close()
	if err != nil {
		i.trace(trace.EventClose+trace.FailureSuffix, err.Error())
	}
	return err
}

func (i *Instrumented) currentHandlers() handlers {
	i.handlersMu.Lock()
	defer i.handlersMu.Unlock()
	return i.handlers
}

func (i *Instrumented) installHandlers() {
	i.connection.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		if candidate == nil {
			// End of gathering.
			i.trace(trace.EventOnIceCandidate)
		} else {
			i.trace(trace.EventOnIceCandidate, NewCandidatePayload(candidate.ToJSON()))
		}
		if handler := i.currentHandlers().iceCandidate; handler != nil {
			handler(candidate)
		}
	})
	i.connection.OnTrack(func(remote *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		i.trace(trace.EventOnTrack, DescribeTrack(remote))
		if handler := i.currentHandlers().track; handler != nil {
			handler(remote, receiver)
		}
	})
	i.connection.OnDataChannel(func(channel *webrtc.DataChannel) {
		i.trace(trace.EventOnDataChannel, DescribeChannel(channel))
		if handler := i.currentHandlers().dataChannel; handler != nil {
			handler(channel)
		}
	})
	i.connection.OnNegotiationNeeded(func() {
		i.trace(trace.EventOnNegotiationNeeded)
		if handler := i.currentHandlers().negotiationNeeded; handler != nil {
			handler()
		}
	})
	i.connection.OnSignalingStateChange(func(state webrtc.SignalingState) {
		i.trace(trace.EventOnSignalingStateChange, state.String())
		if state == webrtc.SignalingStateClosed {
			i.stop()
		}
		if handler := i.currentHandlers().signalingState; handler != nil {
			handler(state)
		}
	})
	i.connection.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		i.trace(trace.EventOnIceConnectionStateChange, state.String())
		if handler := i.currentHandlers().iceConnectionState; handler != nil {
			handler(state)
		}
	})
	i.connection.OnICEGatheringStateChange(func(state webrtc.ICEGatheringState) {
		i.trace(trace.EventOnIceGatheringStateChange, state.String())
		if handler := i.currentHandlers().iceGatheringState; handler != nil {
			handler(state)
		}
	})
	i.connection.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		i.trace(trace.EventOnConnectionStateChange, state.String())
		if handler := i.currentHandlers().connectionState; handler != nil {
			handler(state)
		}
	})
}

func (i *Instrumented) OnICECandidate(handler func(*webrtc.ICECandidate)) {
	i.handlersMu.Lock()
	defer i.handlersMu.Unlock()
	i.handlers.iceCandidate = handler
}

func (i *Instrumented) OnTrack(handler func(*webrtc.TrackRemote, *webrtc.RTPReceiver)) {
	i.handlersMu.Lock()
	defer i.handlersMu.Unlock()
	i.handlers.track = handler
}

func (i *Instrumented) OnDataChannel(handler func(*webrtc.DataChannel)) {
	i.handlersMu.Lock()
	defer i.handlersMu.Unlock()
	i.handlers.dataChannel = handler
}

func (i *Instrumented) OnNegotiationNeeded(handler func()) {
	i.handlersMu.Lock()
	defer i.handlersMu.Unlock()
	i.handlers.negotiationNeeded = handler
}

func (i *Instrumented) OnSignalingStateChange(handler func(webrtc.SignalingState)) {
	i.handlersMu.Lock()
	defer i.handlersMu.Unlock()
	i.handlers.signalingState = handler
}

func (i *Instrumented) OnICEConnectionStateChange(handler func(webrtc.ICEConnectionState)) {
	i.handlersMu.Lock()
	defer i.handlersMu.Unlock()
	i.handlers.iceConnectionState = handler
}

func (i *Instrumented) OnICEGatheringStateChange(handler func(webrtc.ICEGatheringState)) {
	i.handlersMu.Lock()
	defer i.handlersMu.Unlock()
	i.handlers.iceGatheringState = handler
}

func (i *Instrumented) OnConnectionStateChange(handler func(webrtc.PeerConnectionState)) {
	i.handlersMu.Lock()
	defer i.handlersMu.Unlock()
	i.handlers.connectionState = handler
}

var _ Connection = (*webrtc.PeerConnection)(nil)
var _ Connection = (*Instrumented)(nil)

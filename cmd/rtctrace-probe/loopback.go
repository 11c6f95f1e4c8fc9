// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/bureau-foundation/rtctrace/lib/clock"
	"github.com/bureau-foundation/rtctrace/peer"
	"github.com/bureau-foundation/rtctrace/trace"
)

const (
	// connectTimeout bounds ICE and DTLS setup between the two
	// connections.
	connectTimeout = 30 * time.Second

	// messageInterval is the period of data channel messages while
	// the probe runs.
	messageInterval = 250 * time.Millisecond

	probeStreamID = "rtctrace-probe"
)

type loopbackOptions struct {
	tracer           peer.Tracer
	sampler          peer.Sampler
	clock            clock.Clock
	configuration    webrtc.Configuration
	samplingInterval time.Duration
	duration         time.Duration
	logger           *slog.Logger
}

// iceConfiguration returns the configuration for the probe connections,
// loaded from path when one is configured.
func iceConfiguration(path string) (webrtc.Configuration, error) {
	if path == "" {
		return webrtc.Configuration{}, nil
	}
	return peer.LoadICEConfig(path)
}

func newAPI() (*webrtc.API, error) {
	settingEngine := webrtc.SettingEngine{}
	settingEngine.SetIncludeLoopbackCandidate(true)

	media := &webrtc.MediaEngine{}
	if err := media.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("registering codecs: %w", err)
	}
	return webrtc.NewAPI(webrtc.WithMediaEngine(media), webrtc.WithSettingEngine(settingEngine)), nil
}

// runLoopback connects two instrumented peer connections to each
// other, exchanges data channel messages until the duration elapses or
// ctx is cancelled, and closes both.
func runLoopback(ctx context.Context, options loopbackOptions) error {
	api, err := newAPI()
	if err != nil {
		return err
	}

	instrument := func() (*peer.Instrumented, error) {
		connection, err := api.NewPeerConnection(options.configuration)
		if err != nil {
			return nil, fmt.Errorf("creating peer connection: %w", err)
		}
		return peer.Instrument(connection, options.tracer, options.sampler, peer.Options{
			Configuration:    &options.configuration,
			SamplingInterval: options.samplingInterval,
			Logger:           options.logger,
		}), nil
	}
	offerer, err := instrument()
	if err != nil {
		return err
	}
	defer closeConnection(offerer, options.logger)
	answerer, err := instrument()
	if err != nil {
		return err
	}
	defer closeConnection(answerer, options.logger)

	trickle(offerer, answerer, options.logger)
	trickle(answerer, offerer, options.logger)

	var received atomic.Int64
	answerer.OnDataChannel(func(channel *webrtc.DataChannel) {
		channel.OnMessage(func(webrtc.DataChannelMessage) {
			received.Add(1)
		})
	})

	if err := addAudioTrack(offerer, options.tracer); err != nil {
		return err
	}
	channel, err := offerer.CreateDataChannel("probe", nil)
	if err != nil {
		return err
	}
	opened := make(chan struct{})
	channel.OnOpen(func() { close(opened) })

	if err := negotiate(offerer, answerer); err != nil {
		return err
	}

	select {
	case <-opened:
	case <-options.clock.After(connectTimeout):
		return fmt.Errorf("data channel did not open within %s", connectTimeout)
	case <-ctx.Done():
		return nil
	}
	options.logger.Info("loopback connected",
		"offerer", offerer.SessionID(),
		"answerer", answerer.SessionID(),
	)

	ticker := options.clock.NewTicker(messageInterval)
	defer ticker.Stop()
	deadline := options.clock.After(options.duration)
	var sent int64
	for {
		select {
		case <-ticker.C:
			sent++
			if err := channel.SendText(fmt.Sprintf("probe %d", sent)); err != nil {
				return fmt.Errorf("sending on data channel: %w", err)
			}
		case <-deadline:
			options.logger.Info("loopback finished", "sent", sent, "received", received.Load())
			return nil
		case <-ctx.Done():
			options.logger.Info("loopback interrupted", "sent", sent, "received", received.Load())
			return nil
		}
	}
}

// trickle forwards from's local candidates to to.
func trickle(from, to *peer.Instrumented, logger *slog.Logger) {
	from.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		if candidate == nil {
			return
		}
		if err := to.AddICECandidate(candidate.ToJSON()); err != nil {
			logger.Warn("candidate not added", "session", to.SessionID(), "error", err)
		}
	})
}

// negotiate runs one offer/answer exchange. Each side receives the
// other's description before its own local description starts ICE
// gathering, so trickled candidates never arrive early.
func negotiate(offerer, answerer *peer.Instrumented) error {
	offer, err := offerer.CreateOffer(nil)
	if err != nil {
		return err
	}
	if err := answerer.SetRemoteDescription(offer); err != nil {
		return err
	}
	if err := offerer.SetLocalDescription(offer); err != nil {
		return err
	}
	answer, err := answerer.CreateAnswer(nil)
	if err != nil {
		return err
	}
	if err := offerer.SetRemoteDescription(answer); err != nil {
		return err
	}
	return answerer.SetLocalDescription(answer)
}

// addAudioTrack adds a silent Opus track to connection, traced the way
// a captured microphone stream is.
func addAudioTrack(connection *peer.Instrumented, tracer peer.Tracer) error {
	constraints := map[string]any{"audio": true, "video": false}
	tracer.Trace(trace.EventGetUserMedia, "", constraints)

	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio", probeStreamID,
	)
	if err != nil {
		tracer.Trace(trace.EventGetUserMedia+trace.FailureSuffix, "", err.Error())
		return fmt.Errorf("creating audio track: %w", err)
	}
	tracer.Trace(trace.EventGetUserMedia+trace.SuccessSuffix, "", peer.DescribeStream(probeStreamID, track))

	_, err = connection.AddTrack(track)
	return err
}

func closeConnection(connection *peer.Instrumented, logger *slog.Logger) {
	if err := connection.Close(); err != nil && !errors.Is(err, webrtc.ErrConnectionClosed) {
		logger.Warn("closing peer connection", "session", connection.SessionID(), "error", err)
	}
}

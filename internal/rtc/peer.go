package rtc

import (
	"encoding/json"
	"fmt"

	pion "github.com/pion/webrtc/v4"
	"github.com/spatialmeet/cli/internal/config"
	"github.com/spatialmeet/cli/internal/realtime"
)

func newPeerConnection(cfg *config.Config) (*pion.PeerConnection, error) {
	iceServers := []pion.ICEServer{{URLs: cfg.GetSTUNServers()}}

	turnServers := cfg.GetTURNServers()
	if turnServers != nil {
		username, password := cfg.GetTURNCredentials()
		iceServers = append(iceServers, pion.ICEServer{
			URLs:       turnServers,
			Username:   username,
			Credential: password,
		})
	}

	pc, err := pion.NewPeerConnection(pion.Configuration{
		ICEServers: iceServers,
	})
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}
	return pc, nil
}

func createOffer(pc *pion.PeerConnection) (*pion.SessionDescription, error) {
	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return nil, fmt.Errorf("create offer: %w", err)
	}
	if err = pc.SetLocalDescription(offer); err != nil {
		return nil, fmt.Errorf("set local description: %w", err)
	}
	return pc.LocalDescription(), nil
}

func createAnswer(pc *pion.PeerConnection, offerSDP string) (*pion.SessionDescription, error) {
	offer := pion.SessionDescription{Type: pion.SDPTypeOffer, SDP: offerSDP}
	if err := pc.SetRemoteDescription(offer); err != nil {
		return nil, fmt.Errorf("set remote description: %w", err)
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return nil, fmt.Errorf("create answer: %w", err)
	}
	if err = pc.SetLocalDescription(answer); err != nil {
		return nil, fmt.Errorf("set local description: %w", err)
	}
	return pc.LocalDescription(), nil
}

func parseCandidate(sig *realtime.Signal) (*pion.ICECandidateInit, error) {
	if sig.ICECandidate == nil {
		return nil, nil
	}
	candidateBytes, err := json.Marshal(sig.ICECandidate)
	if err != nil {
		return nil, fmt.Errorf("encode ICE candidate: %w", err)
	}
	var ice pion.ICECandidateInit
	if err := json.Unmarshal(candidateBytes, &ice); err != nil {
		return nil, fmt.Errorf("parse ICE candidate: %w", err)
	}
	return &ice, nil
}

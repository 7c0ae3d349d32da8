// Package board assembles one project's BoardState from the coordination
// store in a single pass: one heartbeat-directory scan, one coordination-log
// fold, no re-reads. Downstream renderers (the packer, the claim-violation
// check) receive the result by reference and never touch the filesystem
// themselves — see spec.md §4.2 "the single hot call".
package board

import (
	"fmt"
	"time"

	"github.com/fagemx/edda/internal/coordination"
)

// Assemble scans the heartbeat directory once, parses each heartbeat once,
// folds the coordination log once, and returns the resulting BoardState.
// selfSessionID is excluded from Peers but still counted toward claim
// liveness (foldClaims needs every session's heartbeat, not just peers').
func Assemble(storeDir, projectID, selfSessionID string, now time.Time) (*coordination.BoardState, *coordination.CoordState, error) {
	allHeartbeats, err := coordination.ScanHeartbeats(storeDir, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("scan heartbeats: %w", err)
	}

	peers := coordination.FilterActivePeers(allHeartbeats, selfSessionID, now)

	coordState, err := coordination.FoldCoord(storeDir, projectID, allHeartbeats, now)
	if err != nil {
		return nil, nil, fmt.Errorf("fold coordination log: %w", err)
	}

	var requestsForMe []coordination.PendingRequest
	if self, ok := allHeartbeats[selfSessionID]; ok {
		for _, r := range coordState.Requests {
			if r.ToLabel == self.Label {
				requestsForMe = append(requestsForMe, r)
			}
		}
	}

	return &coordination.BoardState{
		Peers:         peers,
		Claims:        coordState.Claims,
		Bindings:      coordState.Bindings,
		RequestsForMe: requestsForMe,
	}, coordState, nil
}

package corps

import (
	"fmt"

	"github.com/freeeve/warfront/pkg/warfront"
)

// Operational group constants.
const (
	MaxDonation   = 500
	DonorReserve  = 400
	MinDonation   = 100
	MaxDonors     = 4
	MinDonors     = 3
	MinDonorsLow  = 2
	OGMaxDuration = 4
)

// requestOG asks for an operational group for a corps in the execution
// phase of its own operation when it has a free slot. One request is made
// per operation.
func (r *run) requestOG(v *view, fd *FactionDoctrine) {
	cmd := v.cmd
	op := cmd.ActiveOperation
	if op == nil || op.Phase != warfront.PhaseExecution || op.OGRequested {
		return
	}
	if len(cmd.ActiveOGs) >= cmd.OGSlots {
		return
	}

	var participants []*warfront.Formation
	for _, id := range op.Participants {
		if f := r.s.Formations[id]; f != nil && f.Active() {
			participants = append(participants, f)
		}
	}
	sortByPersonnel(participants)

	var donors []warfront.Donation
	for _, f := range participants {
		if len(donors) == MaxDonors {
			break
		}
		if n := min(MaxDonation, f.Personnel-DonorReserve); n >= MinDonation {
			donors = append(donors, warfront.Donation{FormationID: f.ID, Personnel: n})
		}
	}
	need := MinDonors
	if fd.LowOGThreshold || op.Type == warfront.OpSectorAttack {
		need = MinDonorsLow
	}
	if len(donors) < need {
		return
	}

	req := warfront.OGActivationRequest{
		Turn:        r.s.Turn,
		CorpsID:     v.id,
		Operation:   op.Name,
		Donors:      donors,
		Focus:       append([]string(nil), op.Targets...),
		Posture:     ogPosture(op.Type),
		MaxDuration: OGMaxDuration,
	}
	op.OGRequested = true
	r.s.OGRequests = append(r.s.OGRequests, req)
	r.result.OGRequests = append(r.result.OGRequests, req)
	r.event(v.id, EventOGRequested, op.Name, fmt.Sprintf("%d donors", len(donors)))
}

func ogPosture(t warfront.OperationType) warfront.Posture {
	if t == warfront.OpEmergencyDefense {
		return warfront.PostureDefend
	}
	return warfront.PostureAttack
}

// pruneOGs drops operational groups that no longer exist or fight.
func pruneOGs(s *warfront.State, cmd *warfront.CorpsCommand) {
	kept := cmd.ActiveOGs[:0]
	for _, id := range cmd.ActiveOGs {
		if f := s.Formations[id]; f != nil && f.Active() {
			kept = append(kept, id)
		}
	}
	cmd.ActiveOGs = kept
}

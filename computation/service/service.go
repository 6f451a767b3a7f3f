// Package service implements the orchestrator that drives a computation
// through its lifecycle: creation, the invitation round, joining,
// validated encrypted submission, readiness gating, aggregation and the
// final result or error. All state lives behind the persistence port;
// notifications and the clock are ports as well, so the whole state
// machine runs against in-memory fakes in the tests.
package service

import (
	"crypto/cipher"
	"math/big"
	"sort"
	"strconv"
	"strings"

	uuid "github.com/satori/go.uuid"
	"go.dedis.ch/kyber/v3/util/random"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"

	"github.com/medcollab/securestats"
	"github.com/medcollab/securestats/computation"
	"github.com/medcollab/securestats/computation/keystore"
	"github.com/medcollab/securestats/computation/store"
	"github.com/medcollab/securestats/lib/aggregate"
	"github.com/medcollab/securestats/lib/paillier"
	"github.com/medcollab/securestats/lib/shamir"
)

const (
	// maxSubmissionValues caps one submission's size.
	maxSubmissionValues = 10000
	// minValidRatio is the fraction of a submission that must parse as
	// numbers before the whole submission is rejected.
	minValidRatio = 0.5
	// maxValueMagnitude bounds a single measurement. Variance and
	// correlation square and multiply values, so the bound keeps those
	// derived terms far inside the plaintext domain of a 2048-bit key.
	maxValueMagnitude = 1e9
	// inProtocolShareCount and inProtocolShareThreshold are the fixed
	// Shamir parameters applied to each value of a standard or hybrid
	// submission.
	inProtocolShareCount     = 3
	inProtocolShareThreshold = 2
	// minProductionParticipants is the recommended floor for basic
	// k-anonymity. A MinParticipants of 1 stays allowed for test-mode
	// computations, but real deployments should not go below this.
	minProductionParticipants = 3
)

// Config wires the ports of the orchestrator. Store and Keys are
// mandatory; the rest defaults to the log notifier, the wall clock and a
// fresh cryptographic random stream.
type Config struct {
	Store    store.Store
	Keys     *keystore.KeyStore
	Notifier Notifier
	Clock    Clock
	Random   cipher.Stream
}

// Service is the computation orchestrator.
type Service struct {
	store    store.Store
	keys     *keystore.KeyStore
	notifier Notifier
	clock    Clock
	rand     cipher.Stream
	locks    *lockRegistry
}

// NewService returns an orchestrator over the given ports.
func NewService(cfg Config) *Service {
	if cfg.Notifier == nil {
		cfg.Notifier = LogNotifier{}
	}
	if cfg.Clock == nil {
		cfg.Clock = wallClock{}
	}
	if cfg.Random == nil {
		cfg.Random = random.New()
	}
	return &Service{
		store:    cfg.Store,
		keys:     cfg.Keys,
		notifier: cfg.Notifier,
		clock:    cfg.Clock,
		rand:     cfg.Random,
		locks:    newLockRegistry(),
	}
}

// notify pushes an event without letting delivery problems touch the
// state machine.
func (s *Service) notify(e Event) {
	if err := s.notifier.Notify(e); err != nil {
		log.Warn("notification dropped:", err)
	}
}

// CreateComputation message handler.
func (s *Service) CreateComputation(req *CreateComputation) (*CreateComputationReply, error) {
	if req.Creator == "" {
		return nil, securestats.NewError(securestats.ErrValidation,
			"missing creator organization")
	}
	if !req.Statistic.Valid() {
		return nil, securestats.Errorf(securestats.ErrValidation,
			"unsupported statistic %q", req.Statistic)
	}
	if !req.Security.Valid() {
		return nil, securestats.Errorf(securestats.ErrValidation,
			"unsupported security method %q", req.Security)
	}
	if req.Threshold < 1 {
		return nil, securestats.Errorf(securestats.ErrValidation,
			"threshold must be at least 1, got %d", req.Threshold)
	}
	if req.MinParticipants < 1 {
		return nil, securestats.Errorf(securestats.ErrThreshold,
			"minimum participants must be at least 1, got %d",
			req.MinParticipants)
	}
	if req.MinParticipants < minProductionParticipants {
		log.Warn("computation below the recommended", minProductionParticipants,
			"participants offers no k-anonymity")
	}
	if req.Statistic == computation.SecurePercentile &&
		(req.Percentile < 0 || req.Percentile > 100) {
		return nil, securestats.Errorf(securestats.ErrValidation,
			"percentile %v outside [0, 100]", req.Percentile)
	}

	invited := make([]string, 0, len(req.InvitedOrgs))
	for _, org := range req.InvitedOrgs {
		if org != req.Creator {
			invited = append(invited, org)
		}
	}

	now := s.clock.Now()
	comp := &computation.Computation{
		ID:              uuid.NewV4().String(),
		Creator:         req.Creator,
		Statistic:       req.Statistic,
		Security:        req.Security,
		Threshold:       req.Threshold,
		MinParticipants: req.MinParticipants,
		Percentile:      req.Percentile,
		Status:          computation.WaitingForParticipants,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if len(invited) > 0 {
		comp.Status = computation.Created
	}
	if err := s.store.CreateComputation(comp); err != nil {
		return nil, err
	}

	for _, org := range invited {
		err := s.store.AddInvitation(&computation.Invitation{
			ComputationID: comp.ID,
			Organization:  org,
			Inviter:       req.Creator,
			Status:        computation.Pending,
			InvitedAt:     now,
		})
		if err != nil {
			// Duplicate entries in the invite list; the first one won.
			log.Lvl3("skipping invitation:", err)
		}
	}

	log.Lvl2("created computation", comp.ID, "for", comp.Statistic,
		"status", comp.Status)
	return &CreateComputationReply{ID: comp.ID, Status: comp.Status}, nil
}

// InviteParticipant message handler.
func (s *Service) InviteParticipant(req *InviteParticipant) (*InviteParticipantReply, error) {
	comp, err := s.store.Computation(req.ComputationID)
	if err != nil {
		return nil, err
	}
	if comp.Status != computation.Created &&
		comp.Status != computation.WaitingForParticipants {
		return nil, securestats.Errorf(securestats.ErrState,
			"cannot invite while computation is %s", comp.Status)
	}

	participants, err := s.store.Participants(comp.ID)
	if err != nil {
		return nil, err
	}
	if req.Inviter != comp.Creator && !isParticipant(participants, req.Inviter) {
		return nil, securestats.Errorf(securestats.ErrAuthorization,
			"organization %s may not invite", req.Inviter)
	}
	if isParticipant(participants, req.Organization) {
		return nil, securestats.Errorf(securestats.ErrValidation,
			"organization %s is already a participant", req.Organization)
	}

	err = s.store.AddInvitation(&computation.Invitation{
		ComputationID: comp.ID,
		Organization:  req.Organization,
		Inviter:       req.Inviter,
		Status:        computation.Pending,
		InvitedAt:     s.clock.Now(),
	})
	if err != nil {
		return nil, err
	}
	return &InviteParticipantReply{}, nil
}

// RespondInvitation message handler.
func (s *Service) RespondInvitation(req *RespondInvitation) (*RespondInvitationReply, error) {
	comp, err := s.store.Computation(req.ComputationID)
	if err != nil {
		return nil, err
	}

	invitations, err := s.store.Invitations(comp.ID)
	if err != nil {
		return nil, err
	}
	var inv *computation.Invitation
	for _, candidate := range invitations {
		if candidate.Organization == req.Organization &&
			candidate.Status == computation.Pending {
			inv = candidate
			break
		}
	}
	if inv == nil {
		return nil, securestats.Errorf(securestats.ErrNotFound,
			"no pending invitation for organization %s", req.Organization)
	}

	now := s.clock.Now()
	if req.Accept {
		inv.Status = computation.Accepted
	} else {
		inv.Status = computation.Declined
	}
	inv.RespondedAt = now
	if err := s.store.UpdateInvitation(inv); err != nil {
		return nil, err
	}

	if req.Accept {
		participants, err := s.store.Participants(comp.ID)
		if err != nil {
			return nil, err
		}
		// Open computations allow joining ahead of the acceptance.
		if !isParticipant(participants, req.Organization) {
			err := s.store.AddParticipant(&computation.Participant{
				ComputationID: comp.ID,
				Organization:  req.Organization,
				JoinedAt:      now,
			})
			if err != nil {
				return nil, err
			}
		}
		s.notify(Event{
			Type:          ParticipantJoined,
			ComputationID: comp.ID,
			Organization:  req.Organization,
			Status:        comp.Status,
		})
	}

	status, err := s.resolveInvitationRound(comp, !req.Accept)
	if err != nil {
		return nil, err
	}
	return &RespondInvitationReply{Status: status}, nil
}

// resolveInvitationRound checks whether all invitations are answered and
// moves the computation forward: enough participants open the data
// phase, a final decline below quorum cancels the round.
func (s *Service) resolveInvitationRound(comp *computation.Computation,
	declined bool) (computation.Status, error) {

	if comp.Status != computation.Created &&
		comp.Status != computation.WaitingForParticipants {
		return comp.Status, nil
	}

	invitations, err := s.store.Invitations(comp.ID)
	if err != nil {
		return "", err
	}
	for _, inv := range invitations {
		if inv.Status == computation.Pending {
			return comp.Status, nil
		}
	}

	participants, err := s.store.Participants(comp.ID)
	if err != nil {
		return "", err
	}

	switch {
	case len(participants) >= 2:
		return s.transition(comp, computation.WaitingForData)
	case declined:
		return s.transition(comp, computation.Cancelled)
	}
	return comp.Status, nil
}

// transition persists a status change and notifies about it.
func (s *Service) transition(comp *computation.Computation,
	next computation.Status) (computation.Status, error) {

	comp.Status = next
	comp.UpdatedAt = s.clock.Now()
	if err := s.store.UpdateComputation(comp); err != nil {
		return "", err
	}
	log.Lvl2("computation", comp.ID, "is now", next)
	s.notify(Event{
		Type:          StatusChanged,
		ComputationID: comp.ID,
		Status:        next,
	})
	return next, nil
}

// JoinComputation message handler for open computations.
func (s *Service) JoinComputation(req *JoinComputation) (*JoinComputationReply, error) {
	comp, err := s.store.Computation(req.ComputationID)
	if err != nil {
		return nil, err
	}
	if comp.Status != computation.WaitingForParticipants &&
		comp.Status != computation.WaitingForData {
		return nil, securestats.Errorf(securestats.ErrState,
			"computation is not open for joining while %s", comp.Status)
	}

	err = s.store.AddParticipant(&computation.Participant{
		ComputationID: comp.ID,
		Organization:  req.Organization,
		JoinedAt:      s.clock.Now(),
	})
	if err != nil {
		return nil, err
	}

	participants, err := s.store.Participants(comp.ID)
	if err != nil {
		return nil, err
	}
	s.notify(Event{
		Type:          ParticipantJoined,
		ComputationID: comp.ID,
		Organization:  req.Organization,
		Status:        comp.Status,
	})
	return &JoinComputationReply{Participants: len(participants)}, nil
}

// SubmitShare message handler. The values are validated, encrypted under
// the current public key and, depending on the security method, split
// into shares before they are persisted as one immutable submission.
func (s *Service) SubmitShare(req *SubmitShare) (*SubmitShareReply, error) {
	comp, err := s.store.Computation(req.ComputationID)
	if err != nil {
		return nil, err
	}
	switch comp.Status {
	case computation.Created, computation.WaitingForParticipants,
		computation.WaitingForData:
	default:
		return nil, securestats.Errorf(securestats.ErrState,
			"cannot submit while computation is %s", comp.Status)
	}

	participants, err := s.store.Participants(comp.ID)
	if err != nil {
		return nil, err
	}
	if !isParticipant(participants, req.Organization) {
		// The creator may submit without joining first; everyone else
		// has to be admitted.
		if req.Organization != comp.Creator {
			return nil, securestats.Errorf(securestats.ErrAuthorization,
				"organization %s is not a participant", req.Organization)
		}
		err := s.store.AddParticipant(&computation.Participant{
			ComputationID: comp.ID,
			Organization:  req.Organization,
			JoinedAt:      s.clock.Now(),
		})
		if err != nil {
			return nil, err
		}
	}

	if len(req.Values) == 0 || len(req.Values) > maxSubmissionValues {
		return nil, securestats.Errorf(securestats.ErrValidation,
			"submission must hold between 1 and %d values, got %d",
			maxSubmissionValues, len(req.Values))
	}

	values := parseValues(req.Values)
	if float64(len(values)) < minValidRatio*float64(len(req.Values)) {
		return nil, securestats.Errorf(securestats.ErrValidation,
			"%s: only %d of %d values parse as numbers",
			computation.CodeHighInvalidDataRate, len(values), len(req.Values))
	}

	payload, err := s.protect(comp.Security, values)
	if err != nil {
		return nil, err
	}

	err = s.store.AddSubmission(&computation.Submission{
		ComputationID: comp.ID,
		Organization:  req.Organization,
		Payload:       payload,
		CreatedAt:     s.clock.Now(),
	})
	if xerrors.Is(err, store.ErrSubmissionExists) {
		// Expected outcome, not a fault: the first submission stands.
		return &SubmitShareReply{
			Code:   computation.CodeAlreadySubmitted,
			Status: comp.Status,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	status := comp.Status
	if status != computation.WaitingForData {
		status, err = s.transition(comp, computation.WaitingForData)
		if err != nil {
			return nil, err
		}
	}

	log.Lvl3("stored submission of", len(values), "values from",
		req.Organization, "for", comp.ID)
	s.notify(Event{
		Type:          DataSubmitted,
		ComputationID: comp.ID,
		Organization:  req.Organization,
		Status:        status,
	})
	return &SubmitShareReply{
		Code:     computation.CodeOK,
		Accepted: len(values),
		Status:   status,
	}, nil
}

// parseValues keeps the entries that parse as numbers within the
// admitted magnitude. NaN, infinities and out-of-range values count as
// invalid.
func parseValues(raw []string) []float64 {
	out := make([]float64, 0, len(raw))
	for _, entry := range raw {
		v, err := strconv.ParseFloat(strings.TrimSpace(entry), 64)
		if err != nil {
			continue
		}
		if v != v || v > maxValueMagnitude || v < -maxValueMagnitude {
			continue
		}
		out = append(out, v)
	}
	return out
}

// protect turns clear values into the payload the security method
// declares: ciphertexts, share vectors, or both.
func (s *Service) protect(method computation.SecurityMethod,
	values []float64) (computation.Payload, error) {

	var payload computation.Payload

	if method == computation.Homomorphic || method == computation.Hybrid {
		pub, err := s.keys.Public()
		if err != nil {
			return payload, err
		}
		for _, v := range values {
			c, err := pub.Encrypt(aggregate.ToFixed(v), s.rand)
			if err != nil {
				return payload, err
			}
			payload.Values = append(payload.Values, computation.NewPaillierValue(c))
		}
	}

	if method == computation.Standard || method == computation.Hybrid {
		for _, v := range values {
			shares, err := shamir.Split(aggregate.ToFixed(v),
				inProtocolShareCount, inProtocolShareThreshold, s.rand)
			if err != nil {
				return payload, err
			}
			payload.Shares = append(payload.Shares, shares)
		}
	}
	return payload, nil
}

// VerifyIntegrity message handler.
func (s *Service) VerifyIntegrity(req *VerifyIntegrity) (*VerifyIntegrityReply, error) {
	comp, err := s.store.Computation(req.ComputationID)
	if err != nil {
		return nil, err
	}
	submissions, err := s.store.Submissions(comp.ID)
	if err != nil {
		return nil, err
	}

	var violations []string
	for _, sub := range submissions {
		if !sub.Payload.Matches(comp.Security) {
			violations = append(violations, sub.Organization)
		}
	}
	sort.Strings(violations)
	return &VerifyIntegrityReply{
		Valid:      len(violations) == 0,
		Violations: violations,
	}, nil
}

// Compute message handler. Racing calls on the same computation are
// serialized; a terminal computation returns its stored outcome without
// re-executing.
func (s *Service) Compute(req *Compute) (*ComputeReply, error) {
	lock := s.locks.get(req.ComputationID)
	lock.Lock()
	defer lock.Unlock()

	comp, err := s.store.Computation(req.ComputationID)
	if err != nil {
		return nil, err
	}

	if comp.Status.Terminal() {
		return &ComputeReply{
			Status:       comp.Status,
			Result:       comp.Result,
			ErrorCode:    comp.ErrorCode,
			ErrorMessage: comp.ErrorMessage,
		}, nil
	}
	if comp.Status == computation.Processing {
		return nil, securestats.NewError(securestats.ErrState,
			"computation is already processing")
	}
	if comp.Status == computation.Cancelled {
		return nil, securestats.NewError(securestats.ErrState,
			"computation was cancelled")
	}

	participants, err := s.store.Participants(comp.ID)
	if err != nil {
		return nil, err
	}
	if len(participants) < comp.MinParticipants {
		// Not ready yet; the status stays untouched.
		return &ComputeReply{Status: comp.Status}, nil
	}

	if _, err := s.transition(comp, computation.Processing); err != nil {
		return nil, err
	}

	result, code, aggErr := s.aggregate(comp)
	if aggErr != nil {
		comp.ErrorCode = code
		comp.ErrorMessage = aggErr.Error()
		if _, err := s.transition(comp, computation.Error); err != nil {
			return nil, err
		}
		log.Lvl2("computation", comp.ID, "failed:", code, aggErr)
		s.notify(Event{
			Type:          ComputationCompleted,
			ComputationID: comp.ID,
			Status:        computation.Error,
			Message:       code,
		})
		return &ComputeReply{
			Status:       computation.Error,
			ErrorCode:    comp.ErrorCode,
			ErrorMessage: comp.ErrorMessage,
		}, nil
	}

	comp.Result = result
	comp.CompletedAt = s.clock.Now()
	if _, err := s.transition(comp, computation.Completed); err != nil {
		return nil, err
	}
	s.notify(Event{
		Type:          ComputationCompleted,
		ComputationID: comp.ID,
		Status:        computation.Completed,
	})
	return &ComputeReply{Status: computation.Completed, Result: result}, nil
}

// aggregate runs the statistic over all submissions and classifies
// failures with a stable code.
func (s *Service) aggregate(comp *computation.Computation) (
	*computation.Result, string, error) {

	participants, err := s.store.Participants(comp.ID)
	if err != nil {
		return nil, computation.CodeCalculationError, err
	}
	if len(participants) == 0 {
		return nil, computation.CodeNoParticipants,
			securestats.NewError(securestats.ErrThreshold, "no participants")
	}

	submissions, err := s.store.Submissions(comp.ID)
	if err != nil {
		return nil, computation.CodeCalculationError, err
	}
	if len(submissions) == 0 {
		return nil, computation.CodeNoDataSubmitted,
			securestats.NewError(securestats.ErrValidation, "no data submitted")
	}
	if len(submissions) < comp.MinParticipants {
		return nil, computation.CodeInsufficientSubmissions,
			securestats.Errorf(securestats.ErrThreshold,
				"%d submissions, need %d", len(submissions), comp.MinParticipants)
	}

	pair, err := s.keys.Pair()
	if err != nil {
		return nil, computation.CodeCalculationError, err
	}

	var value float64
	var count int
	switch comp.Statistic {
	case computation.SecureSum, computation.SecureAverage:
		value, count, err = s.sumOrMean(comp, submissions, pair)
	case computation.SecureVariance:
		var values []float64
		values, err = s.clearValues(comp, submissions, pair)
		if err == nil {
			count = len(values)
			value, err = aggregate.Variance(values, pair, s.rand)
		}
	case computation.SecurePercentile:
		var values []float64
		values, err = s.clearValues(comp, submissions, pair)
		if err == nil {
			count = len(values)
			value, err = aggregate.Percentile(values, comp.Percentile)
		}
	case computation.SecureCorrelation:
		value, count, err = s.correlation(comp, submissions, pair)
	default:
		err = securestats.Errorf(securestats.ErrValidation,
			"unsupported statistic %q", comp.Statistic)
	}
	if err != nil {
		return nil, computation.CodeCalculationError, err
	}

	return &computation.Result{
		Statistic:  comp.Statistic,
		Value:      value,
		Count:      count,
		ComputedAt: s.clock.Now(),
	}, "", nil
}

// sumOrMean folds the homomorphic sum across all submissions and
// decrypts only the total. Standard-security submissions carry no
// ciphertexts, so their values are reconstructed from shares and summed
// in the clear.
func (s *Service) sumOrMean(comp *computation.Computation,
	submissions []*computation.Submission, pair *paillier.KeyPair) (
	float64, int, error) {

	if comp.Security == computation.Standard {
		values, err := s.clearValues(comp, submissions, pair)
		if err != nil {
			return 0, 0, err
		}
		var sum float64
		for _, v := range values {
			sum += v
		}
		if comp.Statistic == computation.SecureAverage {
			return sum / float64(len(values)), len(values), nil
		}
		return sum, len(values), nil
	}

	var ciphers []*paillier.Ciphertext
	for _, sub := range submissions {
		for _, v := range sub.Payload.Values {
			c, err := v.Cipher()
			if err != nil {
				return 0, 0, err
			}
			ciphers = append(ciphers, c)
		}
	}

	if comp.Statistic == computation.SecureAverage {
		mean, err := aggregate.Mean(ciphers, pair.Private)
		return mean, len(ciphers), err
	}

	total, err := aggregate.Sum(ciphers)
	if err != nil {
		return 0, 0, err
	}
	m, err := pair.Private.Decrypt(total)
	if err != nil {
		return 0, 0, err
	}
	return aggregate.FromFixed(m), len(ciphers), nil
}

// clearValues recovers the clear values of every submission, either by
// reconstructing the secret shares or by decrypting the individual
// ciphertexts. Statistics that need squares, products or ordering have
// to go through here; sum and mean never do.
func (s *Service) clearValues(comp *computation.Computation,
	submissions []*computation.Submission, pair *paillier.KeyPair) (
	[]float64, error) {

	var out []float64
	for _, sub := range submissions {
		if comp.Security == computation.Standard {
			for _, vec := range sub.Payload.Shares {
				if len(vec) == 0 {
					return nil, securestats.NewError(securestats.ErrCrypto,
						"empty share vector")
				}
				secret, err := shamir.Reconstruct(vec, vec[0].Threshold)
				if err != nil {
					return nil, err
				}
				out = append(out, aggregate.FromFixed(fromField(secret)))
			}
			continue
		}
		for _, v := range sub.Payload.Values {
			c, err := v.Cipher()
			if err != nil {
				return nil, err
			}
			m, err := pair.Private.Decrypt(c)
			if err != nil {
				return nil, err
			}
			out = append(out, aggregate.FromFixed(m))
		}
	}
	return out, nil
}

// fromField maps a field element back to the signed fixed-point domain.
func fromField(v *big.Int) *big.Int {
	half := new(big.Int).Rsh(shamir.Prime, 1)
	if v.Cmp(half) > 0 {
		return new(big.Int).Sub(v, shamir.Prime)
	}
	return v
}

// correlation interprets each submission as interleaved (x, y) pairs and
// correlates the two series across all organizations.
func (s *Service) correlation(comp *computation.Computation,
	submissions []*computation.Submission, pair *paillier.KeyPair) (
	float64, int, error) {

	values, err := s.clearValues(comp, submissions, pair)
	if err != nil {
		return 0, 0, err
	}
	if len(values)%2 != 0 {
		return 0, 0, securestats.Errorf(securestats.ErrValidation,
			"correlation needs interleaved x,y pairs, got %d values",
			len(values))
	}

	xs := make([]float64, 0, len(values)/2)
	ys := make([]float64, 0, len(values)/2)
	for i := 0; i < len(values); i += 2 {
		xs = append(xs, values[i])
		ys = append(ys, values[i+1])
	}

	r, err := aggregate.Correlation(xs, ys, pair, s.rand)
	return r, len(xs), err
}

// GetStatus message handler.
func (s *Service) GetStatus(req *GetStatus) (*GetStatusReply, error) {
	comp, err := s.store.Computation(req.ComputationID)
	if err != nil {
		return nil, err
	}
	participants, err := s.store.Participants(comp.ID)
	if err != nil {
		return nil, err
	}
	submissions, err := s.store.Submissions(comp.ID)
	if err != nil {
		return nil, err
	}
	return &GetStatusReply{
		Status:          comp.Status,
		Participants:    len(participants),
		Submissions:     len(submissions),
		MinParticipants: comp.MinParticipants,
	}, nil
}

// GetResult message handler.
func (s *Service) GetResult(req *GetResult) (*GetResultReply, error) {
	comp, err := s.store.Computation(req.ComputationID)
	if err != nil {
		return nil, err
	}
	if comp.Status != computation.Completed {
		return nil, securestats.Errorf(securestats.ErrState,
			"no result while computation is %s", comp.Status)
	}
	return &GetResultReply{Result: comp.Result}, nil
}

// DeleteComputation message handler.
func (s *Service) DeleteComputation(req *DeleteComputation) (*DeleteComputationReply, error) {
	comp, err := s.store.Computation(req.ComputationID)
	if err != nil {
		return nil, err
	}
	if req.Organization != comp.Creator {
		return nil, securestats.Errorf(securestats.ErrAuthorization,
			"only the creator may delete a computation")
	}
	if !comp.Status.Deletable() {
		return nil, securestats.Errorf(securestats.ErrState,
			"cannot delete while computation is %s", comp.Status)
	}
	if err := s.store.DeleteComputation(comp.ID); err != nil {
		return nil, err
	}
	s.locks.forget(comp.ID)
	log.Lvl2("deleted computation", comp.ID)
	return &DeleteComputationReply{}, nil
}

// GetPublicKey message handler.
func (s *Service) GetPublicKey(req *GetPublicKey) (*GetPublicKeyReply, error) {
	pub, err := s.keys.Public()
	if err != nil {
		return nil, err
	}
	return &GetPublicKeyReply{N: pub.N.Bytes(), G: pub.G.Bytes()}, nil
}

// RotateKey message handler.
func (s *Service) RotateKey(req *RotateKey) (*RotateKeyReply, error) {
	pub, err := s.keys.Rotate(s.rand)
	if err != nil {
		return nil, err
	}
	return &RotateKeyReply{N: pub.N.Bytes(), G: pub.G.Bytes()}, nil
}

// isParticipant scans the participant list for the organization.
func isParticipant(participants []*computation.Participant, org string) bool {
	for _, p := range participants {
		if p.Organization == org {
			return true
		}
	}
	return false
}

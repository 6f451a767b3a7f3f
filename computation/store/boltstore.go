package store

import (
	"bytes"
	"time"

	bbolt "go.etcd.io/bbolt"

	"go.dedis.ch/protobuf"

	"github.com/medcollab/securestats"
	"github.com/medcollab/securestats/computation"
	"github.com/medcollab/securestats/lib/paillier"
)

var (
	bucketComputations = []byte("computations")
	bucketParticipants = []byte("participants")
	bucketInvitations  = []byte("invitations")
	bucketSubmissions  = []byte("submissions")
	bucketKeys         = []byte("keys")

	keyCurrentPair = []byte("current")
)

// BoltStore persists every record in a bbolt file. Child records are
// keyed by computationID/organization, so one prefix scan collects them
// and one Update transaction gives the submission-uniqueness check its
// atomicity.
type BoltStore struct {
	db *bbolt.DB
}

// submissionRecord is the persisted form of a submission; the payload
// travels in its stable wire shape.
type submissionRecord struct {
	ComputationID string
	Organization  string
	Payload       *computation.PayloadData
	CreatedAt     time.Time
}

// NewBoltStore opens or creates the database file.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, securestats.WrapError(securestats.ErrValidation, err,
			"opening database")
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{
			bucketComputations, bucketParticipants, bucketInvitations,
			bucketSubmissions, bucketKeys,
		} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

func childKey(computationID, organization string) []byte {
	return []byte(computationID + "/" + organization)
}

func childPrefix(computationID string) []byte {
	return []byte(computationID + "/")
}

// CreateComputation implements Store.
func (b *BoltStore) CreateComputation(c *computation.Computation) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketComputations)
		if bucket.Get([]byte(c.ID)) != nil {
			return securestats.Errorf(securestats.ErrValidation,
				"computation %s already exists", c.ID)
		}
		buf, err := protobuf.Encode(c)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(c.ID), buf)
	})
}

// Computation implements Store.
func (b *BoltStore) Computation(id string) (*computation.Computation, error) {
	var out *computation.Computation
	err := b.db.View(func(tx *bbolt.Tx) error {
		buf := tx.Bucket(bucketComputations).Get([]byte(id))
		if buf == nil {
			return securestats.Errorf(securestats.ErrNotFound,
				"unknown computation %s", id)
		}
		out = &computation.Computation{}
		return protobuf.Decode(buf, out)
	})
	return out, err
}

// UpdateComputation implements Store.
func (b *BoltStore) UpdateComputation(c *computation.Computation) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketComputations)
		if bucket.Get([]byte(c.ID)) == nil {
			return securestats.Errorf(securestats.ErrNotFound,
				"unknown computation %s", c.ID)
		}
		buf, err := protobuf.Encode(c)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(c.ID), buf)
	})
}

// DeleteComputation implements Store.
func (b *BoltStore) DeleteComputation(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketComputations)
		if bucket.Get([]byte(id)) == nil {
			return securestats.Errorf(securestats.ErrNotFound,
				"unknown computation %s", id)
		}
		if err := bucket.Delete([]byte(id)); err != nil {
			return err
		}
		for _, name := range [][]byte{
			bucketParticipants, bucketInvitations, bucketSubmissions,
		} {
			if err := deletePrefix(tx.Bucket(name), childPrefix(id)); err != nil {
				return err
			}
		}
		return nil
	})
}

// deletePrefix removes every key with the given prefix from the bucket.
func deletePrefix(bucket *bbolt.Bucket, prefix []byte) error {
	cursor := bucket.Cursor()
	var doomed [][]byte
	for k, _ := cursor.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = cursor.Next() {
		doomed = append(doomed, append([]byte(nil), k...))
	}
	for _, k := range doomed {
		if err := bucket.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// forPrefix visits every value whose key carries the given prefix.
func forPrefix(bucket *bbolt.Bucket, prefix []byte, fn func(buf []byte) error) error {
	cursor := bucket.Cursor()
	for k, v := cursor.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = cursor.Next() {
		if err := fn(v); err != nil {
			return err
		}
	}
	return nil
}

// AddParticipant implements Store.
func (b *BoltStore) AddParticipant(p *computation.Participant) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketParticipants)
		key := childKey(p.ComputationID, p.Organization)
		if bucket.Get(key) != nil {
			return securestats.Errorf(securestats.ErrValidation,
				"organization %s is already a participant", p.Organization)
		}
		buf, err := protobuf.Encode(p)
		if err != nil {
			return err
		}
		return bucket.Put(key, buf)
	})
}

// Participants implements Store.
func (b *BoltStore) Participants(computationID string) ([]*computation.Participant, error) {
	var out []*computation.Participant
	err := b.db.View(func(tx *bbolt.Tx) error {
		return forPrefix(tx.Bucket(bucketParticipants), childPrefix(computationID),
			func(buf []byte) error {
				p := &computation.Participant{}
				if err := protobuf.Decode(buf, p); err != nil {
					return err
				}
				out = append(out, p)
				return nil
			})
	})
	return out, err
}

// AddInvitation implements Store.
func (b *BoltStore) AddInvitation(inv *computation.Invitation) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketInvitations)
		key := childKey(inv.ComputationID, inv.Organization)
		if buf := bucket.Get(key); buf != nil {
			existing := &computation.Invitation{}
			if err := protobuf.Decode(buf, existing); err != nil {
				return err
			}
			if existing.Status == computation.Pending {
				return securestats.Errorf(securestats.ErrValidation,
					"organization %s already has a pending invitation",
					inv.Organization)
			}
		}
		buf, err := protobuf.Encode(inv)
		if err != nil {
			return err
		}
		return bucket.Put(key, buf)
	})
}

// UpdateInvitation implements Store.
func (b *BoltStore) UpdateInvitation(inv *computation.Invitation) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketInvitations)
		key := childKey(inv.ComputationID, inv.Organization)
		if bucket.Get(key) == nil {
			return securestats.Errorf(securestats.ErrNotFound,
				"no invitation for organization %s", inv.Organization)
		}
		buf, err := protobuf.Encode(inv)
		if err != nil {
			return err
		}
		return bucket.Put(key, buf)
	})
}

// Invitations implements Store.
func (b *BoltStore) Invitations(computationID string) ([]*computation.Invitation, error) {
	var out []*computation.Invitation
	err := b.db.View(func(tx *bbolt.Tx) error {
		return forPrefix(tx.Bucket(bucketInvitations), childPrefix(computationID),
			func(buf []byte) error {
				inv := &computation.Invitation{}
				if err := protobuf.Decode(buf, inv); err != nil {
					return err
				}
				out = append(out, inv)
				return nil
			})
	})
	return out, err
}

// PendingInvitationsBefore implements Store.
func (b *BoltStore) PendingInvitationsBefore(cutoff time.Time) ([]*computation.Invitation, error) {
	var out []*computation.Invitation
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketInvitations).ForEach(func(_, buf []byte) error {
			inv := &computation.Invitation{}
			if err := protobuf.Decode(buf, inv); err != nil {
				return err
			}
			if inv.Status == computation.Pending && inv.InvitedAt.Before(cutoff) {
				out = append(out, inv)
			}
			return nil
		})
	})
	return out, err
}

// AddSubmission implements Store. The existence check and the insert
// share one write transaction, so two racing submissions from the same
// organization cannot both pass.
func (b *BoltStore) AddSubmission(s *computation.Submission) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSubmissions)
		key := childKey(s.ComputationID, s.Organization)
		if bucket.Get(key) != nil {
			return ErrSubmissionExists
		}
		buf, err := protobuf.Encode(&submissionRecord{
			ComputationID: s.ComputationID,
			Organization:  s.Organization,
			Payload:       computation.NewPayloadData(s.Payload),
			CreatedAt:     s.CreatedAt,
		})
		if err != nil {
			return err
		}
		return bucket.Put(key, buf)
	})
}

// Submissions implements Store.
func (b *BoltStore) Submissions(computationID string) ([]*computation.Submission, error) {
	var out []*computation.Submission
	err := b.db.View(func(tx *bbolt.Tx) error {
		return forPrefix(tx.Bucket(bucketSubmissions), childPrefix(computationID),
			func(buf []byte) error {
				rec := &submissionRecord{}
				if err := protobuf.Decode(buf, rec); err != nil {
					return err
				}
				out = append(out, &computation.Submission{
					ComputationID: rec.ComputationID,
					Organization:  rec.Organization,
					Payload:       rec.Payload.Payload(),
					CreatedAt:     rec.CreatedAt,
				})
				return nil
			})
	})
	return out, err
}

// SaveKeyPair implements Store.
func (b *BoltStore) SaveKeyPair(kp *paillier.KeyPair) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		buf, err := protobuf.Encode(computation.NewKeyPairData(kp))
		if err != nil {
			return err
		}
		return tx.Bucket(bucketKeys).Put(keyCurrentPair, buf)
	})
}

// KeyPair implements Store.
func (b *BoltStore) KeyPair() (*paillier.KeyPair, error) {
	var out *paillier.KeyPair
	err := b.db.View(func(tx *bbolt.Tx) error {
		buf := tx.Bucket(bucketKeys).Get(keyCurrentPair)
		if buf == nil {
			return ErrNoKeyPair
		}
		data := &computation.KeyPairData{}
		if err := protobuf.Decode(buf, data); err != nil {
			return err
		}
		out = data.KeyPair()
		return nil
	})
	return out, err
}

// Close implements Store.
func (b *BoltStore) Close() error {
	return b.db.Close()
}

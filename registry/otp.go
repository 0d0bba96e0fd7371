package registry

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"time"

	"github.com/votela/votela/core/store/kv"
	"golang.org/x/xerrors"
)

// Parameters of the one-time-password flow.
const (
	// OTPLength is the number of decimal digits of a code.
	OTPLength = 6

	// OTPValidity is how long a code can be used after it was issued.
	OTPValidity = 15 * time.Minute

	// OTPMaxAttempts is the number of checks allowed per code.
	OTPMaxAttempts = 3
)

// Verification is the pending one-time password of a voter. Issuing a new
// code replaces the previous one and resets the attempt counter.
type Verification struct {
	NationalID string    `json:"national_id"`
	Code       string    `json:"code"`
	IssuedAt   time.Time `json:"issued_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Attempts   int       `json:"attempts"`
	Used       bool      `json:"used"`
	VerifiedAt time.Time `json:"verified_at"`
}

// IssueOTP draws a fresh code for the voter, stores it and hands it to the
// mailer. Any pending code of the voter is replaced.
func (r *Registry) IssueOTP(nationalID string) (Verification, error) {
	code, err := generateCode()
	if err != nil {
		return Verification{}, err
	}

	now := r.clock()

	verif := Verification{
		NationalID: nationalID,
		Code:       code,
		IssuedAt:   now,
		ExpiresAt:  now.Add(OTPValidity),
	}

	var voter Voter

	err = r.db.Update(func(tx kv.WritableTx) error {
		var err error

		voter, err = readVoter(tx, nationalID)
		if err != nil {
			return err
		}

		err = writeVerification(tx, verif)
		if err != nil {
			return err
		}

		return r.appendAudit(tx, AuditEntry{
			Action:  ActionOTPSent,
			Actor:   "self",
			Subject: nationalID,
		})
	})
	if err != nil {
		return Verification{}, err
	}

	err = r.mailer.SendOTP(voter.Email, voter.FullName, code)
	if err != nil {
		return Verification{}, xerrors.Errorf("failed to send code: %v", err)
	}

	return verif, nil
}

// VerifyOTP checks the pending code of the voter. On success the voter
// becomes verified and the code cannot be used again. A wrong code consumes
// an attempt even though the call fails.
func (r *Registry) VerifyOTP(nationalID, code string) error {
	now := r.clock()

	var mismatch error

	err := r.db.Update(func(tx kv.WritableTx) error {
		verif, err := readVerification(tx, nationalID)
		if err != nil {
			return err
		}

		if verif.Used {
			return xerrors.New("code already used")
		}

		if now.After(verif.ExpiresAt) {
			return xerrors.New("code expired")
		}

		if verif.Attempts >= OTPMaxAttempts {
			return xerrors.New("too many attempts")
		}

		verif.Attempts++

		if subtle.ConstantTimeCompare([]byte(verif.Code), []byte(code)) != 1 {
			mismatch = xerrors.Errorf("invalid code, %d attempts left",
				OTPMaxAttempts-verif.Attempts)

			// The attempt counts, so the record commits while the call
			// fails.
			return writeVerification(tx, verif)
		}

		verif.Used = true
		verif.VerifiedAt = now

		err = writeVerification(tx, verif)
		if err != nil {
			return err
		}

		voter, err := readVoter(tx, nationalID)
		if err != nil {
			return err
		}

		voter.Status = StatusVerified
		voter.UpdatedAt = now

		err = writeVoter(tx, voter)
		if err != nil {
			return err
		}

		return r.appendAudit(tx, AuditEntry{
			Action:  ActionOTPVerified,
			Actor:   "self",
			Subject: nationalID,
		})
	})
	if err != nil {
		return err
	}

	return mismatch
}

// writeVerification stores the pending code inside the transaction.
func writeVerification(tx kv.WritableTx, verif Verification) error {
	data, err := json.Marshal(verif)
	if err != nil {
		return xerrors.Errorf("failed to marshal verification: %v", err)
	}

	bucket, err := tx.GetBucketOrCreate(otpBucket)
	if err != nil {
		return xerrors.Errorf("otp bucket: %v", err)
	}

	err = bucket.Set([]byte(verif.NationalID), data)
	if err != nil {
		return xerrors.Errorf("failed to store verification: %v", err)
	}

	return nil
}

// readVerification returns the pending code of the voter.
func readVerification(tx kv.ReadableTx, nationalID string) (Verification, error) {
	bucket := tx.GetBucket(otpBucket)
	if bucket == nil {
		return Verification{}, xerrors.Errorf("no code issued for voter '%s'", nationalID)
	}

	data := bucket.Get([]byte(nationalID))
	if data == nil {
		return Verification{}, xerrors.Errorf("no code issued for voter '%s'", nationalID)
	}

	verif := Verification{}

	err := json.Unmarshal(data, &verif)
	if err != nil {
		return Verification{}, xerrors.Errorf("failed to unmarshal verification: %v", err)
	}

	return verif, nil
}

// generateCode draws OTPLength decimal digits.
func generateCode() (string, error) {
	buf := make([]byte, OTPLength)

	_, err := rand.Read(buf)
	if err != nil {
		return "", xerrors.Errorf("failed to draw code: %v", err)
	}

	for i, b := range buf {
		buf[i] = '0' + b%10
	}

	return string(buf), nil
}

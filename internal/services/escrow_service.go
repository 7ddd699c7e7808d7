package services

import (
	"fmt"
	"log"
	"time"

	"flippa/internal/errs"
	"flippa/internal/models"
	"flippa/internal/repository"
)

// EscrowService owns the escrow state machine:
//
//	PENDING_PAYMENT -> PAYMENT_RECEIVED -> TRANSFER_COMPLETED
//	any non-terminal -> DISPUTE_RAISED -> admin-chosen resolution
//	any non-terminal -> CANCELLED | REFUNDED
//
// TRANSFER_COMPLETED, CANCELLED and REFUNDED are terminal; nothing regresses a
// terminal escrow.
type EscrowService struct {
	repos    repository.Repos
	tx       repository.Transactor
	audit    *AuditService
	notifier *NotificationService
}

func NewEscrowService(repos repository.Repos, tx repository.Transactor, audit *AuditService, notifier *NotificationService) *EscrowService {
	return &EscrowService{repos: repos, tx: tx, audit: audit, notifier: notifier}
}

// resolvableStatuses are the targets an admin may pick when resolving a
// dispute: the statuses reachable from DISPUTE_RAISED.
var resolvableStatuses = map[models.EscrowStatus]bool{
	models.EscrowTransferCompleted: true,
	models.EscrowCancelled:         true,
	models.EscrowRefunded:          true,
	models.EscrowPaymentReceived:   true,
}

// CreateEscrow opens an escrow against an active listing, snapshotting the
// listing price as the escrow amount.
func (s *EscrowService) CreateEscrow(listingID, buyerID uint, paymentGateway models.PaymentGateway, buyerNotes string, rc *RequestContext) (*models.Escrow, error) {
	listing, err := s.repos.Listings.FindByID(listingID)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, errs.NotFound("listing", listingID)
	}

	if listing.Status != models.ListingActive {
		return nil, errs.InvalidState("Listing is not available for purchase")
	}

	buyer, err := s.repos.Users.FindByID(buyerID)
	if err != nil {
		return nil, err
	}
	if buyer == nil {
		return nil, errs.NotFound("user", buyerID)
	}

	if buyer.ID == listing.SellerID {
		return nil, errs.Conflict("Cannot buy your own listing")
	}

	escrow := &models.Escrow{
		ListingID:      listing.ID,
		BuyerID:        buyer.ID,
		SellerID:       listing.SellerID,
		Amount:         listing.Price,
		PaymentGateway: paymentGateway,
		BuyerNotes:     buyerNotes,
		Status:         models.EscrowPendingPayment,
	}

	if err := s.repos.Escrows.Create(escrow); err != nil {
		return nil, err
	}

	s.audit.Record(&buyer.ID, "ESCROW_CREATED", "Escrow", fmt.Sprintf("%d", escrow.ID),
		"Escrow created for listing: "+listing.Title, rc)

	if seller, err := s.repos.Users.FindByID(listing.SellerID); err == nil && seller != nil {
		s.notifier.EscrowCreated(seller.Email, listing.Title, escrow.ID)
	}

	log.Printf("Escrow created: %d for listing: %d", escrow.ID, listingID)
	return escrow, nil
}

func (s *EscrowService) FindByID(id uint) (*models.Escrow, error) {
	escrow, err := s.repos.Escrows.FindByID(id)
	if err != nil {
		return nil, err
	}
	if escrow == nil {
		return nil, errs.NotFound("escrow", id)
	}
	return escrow, nil
}

func (s *EscrowService) FindByBuyerID(buyerID uint) ([]models.Escrow, error) {
	return s.repos.Escrows.FindByBuyerID(buyerID)
}

func (s *EscrowService) FindBySellerID(sellerID uint) ([]models.Escrow, error) {
	return s.repos.Escrows.FindBySellerID(sellerID)
}

// Disputes lists every escrow with an open dispute, oldest first.
func (s *EscrowService) Disputes() ([]models.Escrow, error) {
	return s.repos.Escrows.FindDisputed()
}

// MarkPaymentReceived transitions the escrow after a settled payment. It is
// normally invoked by the payment service inside the payment-completion
// transaction via ApplyPaymentReceived.
func (s *EscrowService) MarkPaymentReceived(escrowID uint, transactionID string, rc *RequestContext) error {
	err := s.tx.Transaction(func(r repository.Repos) error {
		return s.ApplyPaymentReceived(r, escrowID, transactionID)
	})
	if err != nil {
		return err
	}

	s.audit.Record(nil, "ESCROW_PAYMENT_RECEIVED", "Escrow", fmt.Sprintf("%d", escrowID),
		"Payment received for escrow", rc)
	return nil
}

// ApplyPaymentReceived performs the escrow side of payment settlement against
// the given (possibly transaction-bound) repositories. The transition is
// monotonic: a terminal escrow, or one already past PENDING_PAYMENT, keeps its
// status, so a stray duplicate callback can never regress TRANSFER_COMPLETED. A
// dispute raised before the payment settled also keeps DISPUTE_RAISED; the
// settlement details are still recorded for the admin resolving it.
func (s *EscrowService) ApplyPaymentReceived(r repository.Repos, escrowID uint, transactionID string) error {
	escrow, err := r.Escrows.FindByID(escrowID)
	if err != nil {
		return err
	}
	if escrow == nil {
		return errs.NotFound("escrow", escrowID)
	}

	if escrow.Status.IsTerminal() || escrow.Status == models.EscrowPaymentReceived {
		log.Printf("Escrow %d already at %s, ignoring payment-received transition", escrowID, escrow.Status)
		return nil
	}

	now := time.Now()
	escrow.PaymentTransactionID = transactionID
	escrow.PaymentReceivedAt = &now
	if escrow.Status == models.EscrowPendingPayment {
		escrow.Status = models.EscrowPaymentReceived
	}

	if err := r.Escrows.Save(escrow); err != nil {
		return err
	}

	if seller, err := r.Users.FindByID(escrow.SellerID); err == nil && seller != nil {
		s.notifier.PaymentReceived(seller.Email, escrow.ID, escrow.Amount)
	}

	log.Printf("Payment received for escrow: %d", escrowID)
	return nil
}

// RaiseDispute moves a non-terminal escrow to DISPUTE_RAISED. Only the buyer
// or seller of the escrow may raise one. Raising a second dispute overwrites
// the previous reason and timestamp (last write wins).
func (s *EscrowService) RaiseDispute(escrowID uint, reason string, actorUserID uint, rc *RequestContext) error {
	escrow, err := s.repos.Escrows.FindByID(escrowID)
	if err != nil {
		return err
	}
	if escrow == nil {
		return errs.NotFound("escrow", escrowID)
	}

	if actorUserID != escrow.BuyerID && actorUserID != escrow.SellerID {
		return errs.Unauthorized("Unauthorized to raise dispute")
	}

	if escrow.Status.IsTerminal() {
		return errs.InvalidState(fmt.Sprintf("Cannot dispute an escrow with status %s", escrow.Status))
	}

	now := time.Now()
	escrow.DisputeRaised = true
	escrow.DisputeReason = reason
	escrow.DisputeRaisedAt = &now
	escrow.Status = models.EscrowDisputeRaised

	if err := s.repos.Escrows.Save(escrow); err != nil {
		return err
	}

	s.audit.Record(&actorUserID, "ESCROW_DISPUTE_RAISED", "Escrow", fmt.Sprintf("%d", escrowID),
		"Dispute raised: "+reason, rc)

	// Tell the counterparty.
	otherID := escrow.SellerID
	if actorUserID == escrow.SellerID {
		otherID = escrow.BuyerID
	}
	if other, err := s.repos.Users.FindByID(otherID); err == nil && other != nil {
		s.notifier.DisputeRaised(other.Email, escrow.ID, reason)
	}

	log.Printf("Dispute raised for escrow: %d by user: %d", escrowID, actorUserID)
	return nil
}

// ResolveDispute records an admin decision and moves the escrow to the chosen
// final status. The escrow must currently be in DISPUTE_RAISED and the target
// must be one of the statuses reachable from it. Admin capability is enforced
// by the calling layer.
func (s *EscrowService) ResolveDispute(escrowID uint, resolution, resolutionNotes string, finalStatus models.EscrowStatus, adminUserID uint, rc *RequestContext) error {
	if !resolvableStatuses[finalStatus] {
		return errs.InvalidState(fmt.Sprintf("Cannot resolve a dispute to status %s", finalStatus))
	}

	escrow, err := s.repos.Escrows.FindByID(escrowID)
	if err != nil {
		return err
	}
	if escrow == nil {
		return errs.NotFound("escrow", escrowID)
	}

	if escrow.Status != models.EscrowDisputeRaised {
		return errs.InvalidState(fmt.Sprintf("Cannot resolve a dispute on an escrow with status %s", escrow.Status))
	}

	now := time.Now()
	escrow.DisputeResolution = resolution
	escrow.AdminResolutionNotes = resolutionNotes
	escrow.ResolvedByAdminID = &adminUserID
	escrow.Status = finalStatus
	escrow.DisputeRaised = false
	escrow.DisputeResolvedAt = &now

	if err := s.repos.Escrows.Save(escrow); err != nil {
		return err
	}

	s.audit.Record(&adminUserID, "ESCROW_DISPUTE_RESOLVED", "Escrow", fmt.Sprintf("%d", escrowID),
		"Dispute resolved: "+resolution, rc)

	for _, partyID := range []uint{escrow.BuyerID, escrow.SellerID} {
		if party, err := s.repos.Users.FindByID(partyID); err == nil && party != nil {
			s.notifier.DisputeResolved(party.Email, escrow.ID, resolution)
		}
	}

	log.Printf("Dispute resolved for escrow: %d by admin: %d", escrowID, adminUserID)
	return nil
}

// CompleteTransfer marks the asset handover done and cascades the listing to
// SOLD. Both writes commit together or not at all. The caller must be the
// escrow's seller or an administrator. An escrow with an open dispute cannot
// be completed this way; the dispute has to go through ResolveDispute.
func (s *EscrowService) CompleteTransfer(escrowID, actorUserID uint, rc *RequestContext) error {
	escrow, err := s.repos.Escrows.FindByID(escrowID)
	if err != nil {
		return err
	}
	if escrow == nil {
		return errs.NotFound("escrow", escrowID)
	}

	actor, err := s.repos.Users.FindByID(actorUserID)
	if err != nil {
		return err
	}
	if actor == nil {
		return errs.NotFound("user", actorUserID)
	}

	if actor.ID != escrow.SellerID && !actor.IsAdmin() {
		return errs.Unauthorized("Unauthorized to complete transfer")
	}

	if escrow.Status.IsTerminal() {
		return errs.InvalidState(fmt.Sprintf("Cannot complete transfer for escrow with status %s", escrow.Status))
	}
	if escrow.Status == models.EscrowDisputeRaised {
		return errs.InvalidState("Cannot complete transfer while a dispute is open")
	}

	err = s.tx.Transaction(func(r repository.Repos) error {
		current, err := r.Escrows.FindByID(escrowID)
		if err != nil {
			return err
		}
		if current == nil {
			return errs.NotFound("escrow", escrowID)
		}

		now := time.Now()
		current.Status = models.EscrowTransferCompleted
		current.TransferCompletedAt = &now
		if err := r.Escrows.Save(current); err != nil {
			return err
		}

		listing, err := r.Listings.FindByID(current.ListingID)
		if err != nil {
			return err
		}
		if listing == nil {
			return errs.NotFound("listing", current.ListingID)
		}

		listing.Status = models.ListingSold
		return r.Listings.Save(listing)
	})
	if err != nil {
		return err
	}

	s.audit.Record(&actorUserID, "ESCROW_TRANSFER_COMPLETED", "Escrow", fmt.Sprintf("%d", escrowID),
		"Transfer completed", rc)

	if buyer, err := s.repos.Users.FindByID(escrow.BuyerID); err == nil && buyer != nil {
		s.notifier.TransferCompleted(buyer.Email, escrow.ID)
	}

	log.Printf("Transfer completed for escrow: %d", escrowID)
	return nil
}

package services

import (
	"fmt"
	"log"
	"os"

	"github.com/resend/resend-go/v2"
)

// NotificationService sends lifecycle emails to buyers and sellers via Resend.
// Sends are best-effort: failures are logged and never surfaced to the
// business operation. A service built without an API key sends nothing.
type NotificationService struct {
	client *resend.Client
	from   string
}

func NewNotificationService() *NotificationService {
	apiKey := os.Getenv("RESEND_API_KEY")
	fromEmail := os.Getenv("FROM_EMAIL")
	if fromEmail == "" {
		fromEmail = "onboarding@resend.dev"
	}

	if apiKey == "" {
		log.Printf("RESEND_API_KEY not set, email notifications disabled")
		return &NotificationService{from: fromEmail}
	}

	return &NotificationService{
		client: resend.NewClient(apiKey),
		from:   fromEmail,
	}
}

func (ns *NotificationService) send(to, subject, htmlBody string) {
	if ns == nil || ns.client == nil || to == "" {
		return
	}

	params := &resend.SendEmailRequest{
		From:    ns.from,
		To:      []string{to},
		Subject: subject,
		Html:    htmlBody,
	}

	if _, err := ns.client.Emails.Send(params); err != nil {
		log.Printf("Failed to send notification email to %s: %v", to, err)
		return
	}
	log.Printf("Notification email sent to %s: %s", to, subject)
}

func (ns *NotificationService) EscrowCreated(sellerEmail, listingTitle string, escrowID uint) {
	ns.send(sellerEmail, "You have a buyer",
		fmt.Sprintf("<p>A buyer has opened escrow #%d for your listing <strong>%s</strong>. The sale will proceed once their payment settles.</p>", escrowID, listingTitle))
}

func (ns *NotificationService) PaymentReceived(sellerEmail string, escrowID uint, amount float64) {
	ns.send(sellerEmail, "Payment received in escrow",
		fmt.Sprintf("<p>Payment of %.2f for escrow #%d has been received and is being held in escrow. You can now begin transferring the asset.</p>", amount, escrowID))
}

func (ns *NotificationService) DisputeRaised(otherPartyEmail string, escrowID uint, reason string) {
	ns.send(otherPartyEmail, "A dispute was raised",
		fmt.Sprintf("<p>A dispute has been raised on escrow #%d: %s</p><p>An administrator will review it.</p>", escrowID, reason))
}

func (ns *NotificationService) DisputeResolved(partyEmail string, escrowID uint, resolution string) {
	ns.send(partyEmail, "Dispute resolved",
		fmt.Sprintf("<p>The dispute on escrow #%d has been resolved: %s</p>", escrowID, resolution))
}

func (ns *NotificationService) TransferCompleted(buyerEmail string, escrowID uint) {
	ns.send(buyerEmail, "Transfer completed",
		fmt.Sprintf("<p>The seller has completed the transfer for escrow #%d. The sale is now final.</p>", escrowID))
}

package handlers

import (
	"gig-market/internal/common/clientprotocol"
	"gig-market/internal/gigmarket/data"
	"gig-market/internal/gigmarket/service"
)

func toClientOrder(details service.OrderDetails) clientprotocol.Order {
	order := details.Order
	revisions := make([]clientprotocol.Revision, 0, len(order.Revisions))
	for _, rev := range order.Revisions {
		revisions = append(revisions, clientprotocol.Revision{Message: rev.Message, RequestedAt: rev.RequestedAt})
	}
	return clientprotocol.Order{
		ID:          order.ID.String(),
		Client:      toClientParty(details.Client),
		Freelancer:  toClientParty(details.Freelancer),
		ServiceID:   order.ServiceID,
		PackageTier: string(order.PackageTier),
		PackageDetails: clientprotocol.PackageDetails{
			Price:        order.PackageDetails.Price,
			Description:  order.PackageDetails.Description,
			DeliveryTime: order.PackageDetails.DeliveryTime,
			Features:     order.PackageDetails.Features,
			Revisions:    order.PackageDetails.Revisions,
		},
		Requirements:       order.Requirements,
		Status:             string(order.Status),
		PaymentStatus:      string(order.PaymentStatus),
		EscrowAmount:       order.EscrowAmount,
		PlatformFee:        order.PlatformFee,
		FreelancerEarnings: order.FreelancerEarnings,
		EscrowReleased:     order.EscrowReleased,
		RevisionCount:      order.RevisionCount,
		Revisions:          revisions,
		ClientFiles:        toClientFiles(order.ClientFiles),
		FreelancerFiles:    toClientFiles(order.FreelancerFiles),
		CancellationReason: order.CancellationReason,
		CreatedAt:          order.CreatedAt,
		AcceptedAt:         order.AcceptedAt,
		SubmittedAt:        order.SubmittedAt,
		CompletedAt:        order.CompletedAt,
		CancelledAt:        order.CancelledAt,
	}
}

func toClientParty(party service.Party) clientprotocol.Party {
	return clientprotocol.Party{ID: party.ID.String(), Name: party.Name}
}

func toClientFiles(files []data.File) []clientprotocol.File {
	out := make([]clientprotocol.File, 0, len(files))
	for _, f := range files {
		out = append(out, clientprotocol.File{Filename: f.Filename, URL: f.URL, UploadedAt: f.UploadedAt})
	}
	return out
}

func fromClientFiles(files []clientprotocol.File) []service.FileInput {
	out := make([]service.FileInput, 0, len(files))
	for _, f := range files {
		out = append(out, service.FileInput{Filename: f.Filename, URL: f.URL})
	}
	return out
}

func toClientWithdrawal(w data.Withdrawal) clientprotocol.Withdrawal {
	out := clientprotocol.Withdrawal{
		ID:     w.ID.String(),
		UserID: w.UserID.String(),
		Amount: w.Amount,
		BankDetails: clientprotocol.BankDetails{
			BankName:      w.Bank.BankName,
			AccountNumber: w.Bank.AccountNumber,
			AccountName:   w.Bank.AccountName,
		},
		Status:      string(w.Status),
		Notes:       w.Notes,
		ProcessedAt: w.ProcessedAt,
		CreatedAt:   w.CreatedAt,
	}
	if w.ProcessedBy != nil {
		out.ProcessedBy = w.ProcessedBy.String()
	}
	return out
}

func toClientWithdrawals(withdrawals []data.Withdrawal) []clientprotocol.Withdrawal {
	out := make([]clientprotocol.Withdrawal, 0, len(withdrawals))
	for _, w := range withdrawals {
		out = append(out, toClientWithdrawal(w))
	}
	return out
}

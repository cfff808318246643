// Package salesdoc provides the lifecycle engine for estimates, contracts
// and invoices, including the payment ledger behind them.
//
// Salesdoc is designed as a library, not a service. Import it directly into
// your Go application. It provides:
//
//   - Explicit state machines for estimates, contracts and invoices
//   - Estimate to contract conversion that happens at most once per estimate
//   - Contract billing in full or per payment-schedule installment
//   - An append-only payment ledger with refunds as offsetting entries
//   - Overdue status computed at read time, never stored
//   - Gap-tolerant, never-reused document numbers (EST-2024-0001)
//   - An audit entry written in the same transaction as every change
//
// # Quick Start
//
// Create an engine with your preferred store:
//
//	import (
//	    "github.com/xraph/salesdoc"
//	    "github.com/xraph/salesdoc/store/postgres"
//	)
//
//	store, err := postgres.New(ctx, databaseURL)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	engine := salesdoc.New(store)
//	if err := engine.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Stop()
//
// # Actors
//
// Every operation takes the authenticated Actor. Staff prepare, send, bill
// and cancel documents. Customers view, approve or reject estimates, sign
// contracts and pay invoices, and only ever see documents addressed to their
// contact id; anything else looks like ErrNotFound.
//
//	staff := salesdoc.Staff("user_42")
//	est, err := engine.CreateEstimate(ctx, staff, salesdoc.EstimateInput{...})
//	est, err = engine.SendEstimate(ctx, staff, est.ID)
//
//	customer := salesdoc.Customer(est.ContactID)
//	est, err = engine.ApproveEstimate(ctx, customer, est.ID)
//
// # Concurrency
//
// Documents carry a version. Every write is checked against the version it
// was read at and retried on conflict, so racing conversions or payments
// resolve to ErrAlreadyConverted or ErrOverpaymentRejected rather than a
// duplicate contract or an overpaid invoice.
//
// # Money
//
// All monetary amounts are integer cents. Line totals are quantity times
// unit price rounded half away from zero to the cent.
//
// # TypeID
//
// All entities use TypeID identifiers:
//
//	est_01h2xcejqtf2nbrexx3vqjhp41  // Estimate ID
//	ctr_01h2xcejqtf2nbrexx3vqjhp41  // Contract ID
//	inv_01h455vb4pex5vsknk084sn02q  // Invoice ID
//	pay_01h455vb4pex5vsknk084sn02q  // Payment ID
package salesdoc

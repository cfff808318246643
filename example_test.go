package salesdoc_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/xraph/salesdoc"
	"github.com/xraph/salesdoc/contract"
	"github.com/xraph/salesdoc/payment"
	"github.com/xraph/salesdoc/store/memory"
)

func Example() {
	ctx := context.Background()
	now := func() time.Time { return time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC) }

	engine := salesdoc.New(memory.New(), salesdoc.WithClock(now))
	if err := engine.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer engine.Stop()

	staff := salesdoc.Staff("user_7")
	customer := salesdoc.Customer("contact_42")

	est, err := engine.CreateEstimate(ctx, staff, salesdoc.EstimateInput{
		ContactID: customer.ID,
		Title:     "Hardwood refinish",
		LineItems: []salesdoc.LineItemInput{
			{Description: "Sand and seal", Quantity: salesdoc.MustQuantity("212.5"), Unit: "sqft", UnitPrice: salesdoc.MustParse("3.49")},
		},
		Tax: salesdoc.MustParse("59.33"),
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(est.Number, est.Total)

	must(engine.SendEstimate(ctx, staff, est.ID))
	must(engine.ApproveEstimate(ctx, customer, est.ID))

	c, err := engine.ConvertEstimateToContract(ctx, staff, est.ID, salesdoc.ContractOptions{PaymentTerms: "Net 30"})
	if err != nil {
		log.Fatal(err)
	}
	must(engine.SendContract(ctx, staff, c.ID))
	must(engine.SignContract(ctx, customer, c.ID, contract.PartyCustomer, "Pat Customer"))
	c, err = engine.SignContract(ctx, staff, c.ID, contract.PartyCompany, "Sam Staff")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(c.Number, c.Status)

	inv, err := engine.ConvertContractToInvoice(ctx, staff, c.ID, salesdoc.InvoiceOptions{})
	if err != nil {
		log.Fatal(err)
	}
	must(engine.SendInvoice(ctx, staff, inv.ID))

	inv, _, err = engine.RecordPayment(ctx, customer, inv.ID, salesdoc.PaymentInput{
		Amount: salesdoc.MustParse("400.00"),
		Method: payment.MethodCard,
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(inv.Number, inv.Status, inv.AmountDue)

	// Output:
	// EST-2024-0001 800.96
	// CTR-2024-0001 signed
	// INV-2024-0001 partially_paid 400.96
}

func must[T any](_ T, err error) {
	if err != nil {
		log.Fatal(err)
	}
}

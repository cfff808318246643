// Package mongo implements store.Store on MongoDB. Multi-document writes
// run in a session transaction, which requires a replica set or sharded
// cluster.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/xraph/salesdoc"
	"github.com/xraph/salesdoc/audit"
	"github.com/xraph/salesdoc/contract"
	"github.com/xraph/salesdoc/estimate"
	"github.com/xraph/salesdoc/id"
	"github.com/xraph/salesdoc/invoice"
	"github.com/xraph/salesdoc/payment"
	"github.com/xraph/salesdoc/store"
)

// Collection name constants.
const (
	colEstimates = "salesdoc_estimates"
	colContracts = "salesdoc_contracts"
	colInvoices  = "salesdoc_invoices"
	colPayments  = "salesdoc_payments"
	colAudit     = "salesdoc_audit"
	colSequences = "salesdoc_sequences"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using MongoDB.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// New connects to uri and uses database.
func New(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("salesdoc/mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("salesdoc/mongo: ping: %w", err)
	}
	return NewFromClient(client, database), nil
}

// NewFromClient wraps an existing client.
func NewFromClient(client *mongo.Client, database string) *Store {
	return &Store{client: client, db: client.Database(database)}
}

// Database returns the underlying database for direct access.
func (s *Store) Database() *mongo.Database { return s.db }

// Migrate creates indexes for all collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("salesdoc/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

// ==================== Estimate Store ====================

func (s *Store) CreateEstimate(ctx context.Context, e *estimate.Estimate, entry *audit.Entry) error {
	err := s.tx(ctx, func(ctx context.Context) error {
		return s.insertEstimate(ctx, e, entry)
	})
	if err != nil {
		return wrap("create estimate", err)
	}
	e.Version = 1
	return nil
}

func (s *Store) insertEstimate(ctx context.Context, e *estimate.Estimate, entry *audit.Entry) error {
	m := toEstimateModel(e)
	m.Version = 1
	if _, err := s.db.Collection(colEstimates).InsertOne(ctx, m); err != nil {
		return err
	}
	return s.insertAudit(ctx, entry)
}

func (s *Store) GetEstimate(ctx context.Context, estID id.EstimateID) (*estimate.Estimate, error) {
	var m estimateModel
	if err := s.db.Collection(colEstimates).FindOne(ctx, bson.M{"_id": estID.String()}).Decode(&m); err != nil {
		return nil, wrap("get estimate", err)
	}
	return fromEstimateModel(&m)
}

func (s *Store) ListEstimates(ctx context.Context, opts estimate.ListOpts) ([]*estimate.Estimate, error) {
	filter := bson.M{}
	if opts.ContactID != "" {
		filter["contact_id"] = opts.ContactID
	}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	var models []estimateModel
	if err := s.find(ctx, colEstimates, filter, opts.Limit, opts.Offset, &models); err != nil {
		return nil, wrap("list estimates", err)
	}

	var out []*estimate.Estimate
	for i := range models {
		e, err := fromEstimateModel(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) UpdateEstimate(ctx context.Context, e *estimate.Estimate, entry *audit.Entry) error {
	err := s.tx(ctx, func(ctx context.Context) error {
		return s.replace(ctx, colEstimates, e.ID.String(), e.Version, toEstimateModel(e), entry)
	})
	if err != nil {
		return wrap("update estimate", err)
	}
	e.Version++
	return nil
}

// ==================== Contract Store ====================

func (s *Store) CreateContract(ctx context.Context, c *contract.Contract, entry *audit.Entry) error {
	err := s.tx(ctx, func(ctx context.Context) error {
		return s.insertContract(ctx, c, entry)
	})
	if err != nil {
		return wrap("create contract", err)
	}
	c.Version = 1
	return nil
}

func (s *Store) insertContract(ctx context.Context, c *contract.Contract, entry *audit.Entry) error {
	m := toContractModel(c)
	m.Version = 1
	if _, err := s.db.Collection(colContracts).InsertOne(ctx, m); err != nil {
		return err
	}
	return s.insertAudit(ctx, entry)
}

func (s *Store) GetContract(ctx context.Context, ctrID id.ContractID) (*contract.Contract, error) {
	var m contractModel
	if err := s.db.Collection(colContracts).FindOne(ctx, bson.M{"_id": ctrID.String()}).Decode(&m); err != nil {
		return nil, wrap("get contract", err)
	}
	return fromContractModel(&m)
}

func (s *Store) ListContracts(ctx context.Context, opts contract.ListOpts) ([]*contract.Contract, error) {
	filter := bson.M{}
	if opts.ContactID != "" {
		filter["contact_id"] = opts.ContactID
	}
	if !opts.EstimateID.IsNil() {
		filter["estimate_id"] = opts.EstimateID.String()
	}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	var models []contractModel
	if err := s.find(ctx, colContracts, filter, opts.Limit, opts.Offset, &models); err != nil {
		return nil, wrap("list contracts", err)
	}

	var out []*contract.Contract
	for i := range models {
		c, err := fromContractModel(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *Store) UpdateContract(ctx context.Context, c *contract.Contract, entry *audit.Entry) error {
	err := s.tx(ctx, func(ctx context.Context) error {
		return s.replace(ctx, colContracts, c.ID.String(), c.Version, toContractModel(c), entry)
	})
	if err != nil {
		return wrap("update contract", err)
	}
	c.Version++
	return nil
}

// ConvertEstimate implements store.Store.
func (s *Store) ConvertEstimate(ctx context.Context, est *estimate.Estimate, c *contract.Contract, entries ...*audit.Entry) error {
	err := s.tx(ctx, func(ctx context.Context) error {
		if err := s.replace(ctx, colEstimates, est.ID.String(), est.Version, toEstimateModel(est), nil); err != nil {
			return err
		}
		if err := s.insertContract(ctx, c, nil); err != nil {
			return err
		}
		for _, entry := range entries {
			if err := s.insertAudit(ctx, entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return wrap("convert estimate", err)
	}
	est.Version++
	c.Version = 1
	return nil
}

// ==================== Invoice Store ====================

func (s *Store) CreateInvoice(ctx context.Context, inv *invoice.Invoice, entry *audit.Entry) error {
	err := s.tx(ctx, func(ctx context.Context) error {
		m := toInvoiceModel(inv)
		m.Version = 1
		if _, err := s.db.Collection(colInvoices).InsertOne(ctx, m); err != nil {
			return err
		}
		return s.insertAudit(ctx, entry)
	})
	if err != nil {
		return wrap("create invoice", err)
	}
	inv.Version = 1
	return nil
}

func (s *Store) GetInvoice(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	var m invoiceModel
	if err := s.db.Collection(colInvoices).FindOne(ctx, bson.M{"_id": invID.String()}).Decode(&m); err != nil {
		return nil, wrap("get invoice", err)
	}
	return fromInvoiceModel(&m)
}

func (s *Store) ListInvoices(ctx context.Context, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	filter := bson.M{}
	if opts.ContactID != "" {
		filter["contact_id"] = opts.ContactID
	}
	if !opts.ContractID.IsNil() {
		filter["contract_id"] = opts.ContractID.String()
	}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}
	if opts.DueBefore != nil {
		filter["due_date"] = bson.M{"$lt": opts.DueBefore.UTC()}
	}

	var models []invoiceModel
	if err := s.find(ctx, colInvoices, filter, opts.Limit, opts.Offset, &models); err != nil {
		return nil, wrap("list invoices", err)
	}

	var out []*invoice.Invoice
	for i := range models {
		inv, err := fromInvoiceModel(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, nil
}

func (s *Store) UpdateInvoice(ctx context.Context, inv *invoice.Invoice, entry *audit.Entry) error {
	err := s.tx(ctx, func(ctx context.Context) error {
		return s.replace(ctx, colInvoices, inv.ID.String(), inv.Version, toInvoiceModel(inv), entry)
	})
	if err != nil {
		return wrap("update invoice", err)
	}
	inv.Version++
	return nil
}

// ==================== Payment Store ====================

// AppendPayment implements store.Store.
func (s *Store) AppendPayment(ctx context.Context, inv *invoice.Invoice, p *payment.Payment, entry *audit.Entry) error {
	err := s.tx(ctx, func(ctx context.Context) error {
		if err := s.replace(ctx, colInvoices, inv.ID.String(), inv.Version, toInvoiceModel(inv), entry); err != nil {
			return err
		}
		_, err := s.db.Collection(colPayments).InsertOne(ctx, toPaymentModel(p, inv.Version+1))
		return err
	})
	if err != nil {
		return wrap("append payment", err)
	}
	inv.Version++
	return nil
}

func (s *Store) GetPayment(ctx context.Context, payID id.PaymentID) (*payment.Payment, error) {
	var m paymentModel
	if err := s.db.Collection(colPayments).FindOne(ctx, bson.M{"_id": payID.String()}).Decode(&m); err != nil {
		return nil, wrap("get payment", err)
	}
	return fromPaymentModel(&m)
}

func (s *Store) ListPayments(ctx context.Context, invID id.InvoiceID) ([]*payment.Payment, error) {
	cur, err := s.db.Collection(colPayments).Find(ctx,
		bson.M{"invoice_id": invID.String()},
		options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, wrap("list payments", err)
	}
	var models []paymentModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, wrap("list payments", err)
	}

	out := make([]*payment.Payment, 0, len(models))
	for i := range models {
		p, err := fromPaymentModel(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// ==================== Audit & sequences ====================

func (s *Store) ListAudit(ctx context.Context, documentID id.ID) ([]*audit.Entry, error) {
	cur, err := s.db.Collection(colAudit).Find(ctx,
		bson.M{"document_id": documentID.String()},
		options.Find().SetSort(bson.D{{Key: "at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, wrap("list audit", err)
	}
	var models []auditModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, wrap("list audit", err)
	}

	out := make([]*audit.Entry, 0, len(models))
	for i := range models {
		e, err := fromAuditModel(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) insertAudit(ctx context.Context, entry *audit.Entry) error {
	if entry == nil {
		return nil
	}
	_, err := s.db.Collection(colAudit).InsertOne(ctx, toAuditModel(entry))
	return err
}

// NextSequence implements store.Store.
func (s *Store) NextSequence(ctx context.Context, key string) (int64, error) {
	var m sequenceModel
	err := s.db.Collection(colSequences).FindOneAndUpdate(ctx,
		bson.M{"_id": key},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		return 0, fmt.Errorf("salesdoc/mongo: next sequence %s: %w", key, err)
	}
	return m.Value, nil
}

// ==================== helpers ====================

// tx runs fn in a session transaction. The driver retries transient
// transaction errors itself.
func (s *Store) tx(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
	return err
}

// replace swaps the stored document for m when its version still equals
// expected, bumping the version.
func (s *Store) replace(ctx context.Context, col, docID string, expected int64, m any, entry *audit.Entry) error {
	doc, err := bson.Marshal(m)
	if err != nil {
		return err
	}
	var fields bson.M
	if err := bson.Unmarshal(doc, &fields); err != nil {
		return err
	}
	fields["version"] = expected + 1

	res, err := s.db.Collection(col).ReplaceOne(ctx, bson.M{"_id": docID, "version": expected}, fields)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		n, err := s.db.Collection(col).CountDocuments(ctx, bson.M{"_id": docID})
		if err != nil {
			return err
		}
		if n == 0 {
			return salesdoc.ErrNotFound
		}
		return salesdoc.ErrVersionConflict
	}
	return s.insertAudit(ctx, entry)
}

func (s *Store) find(ctx context.Context, col string, filter bson.M, limit, offset int, out any) error {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}
	cur, err := s.db.Collection(col).Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	return cur.All(ctx, out)
}

// wrap maps driver errors onto the engine's sentinels.
func wrap(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, salesdoc.ErrNotFound), errors.Is(err, salesdoc.ErrVersionConflict):
		return err
	case errors.Is(err, mongo.ErrNoDocuments):
		return salesdoc.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", salesdoc.ErrAlreadyExists, err)
	default:
		return fmt.Errorf("salesdoc/mongo: %s: %w", op, err)
	}
}

func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colEstimates: {
			{Keys: bson.D{{Key: "number", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "contact_id", Value: 1}, {Key: "status", Value: 1}}},
		},
		colContracts: {
			{Keys: bson.D{{Key: "number", Value: 1}}, Options: options.Index().SetUnique(true)},
			{
				Keys: bson.D{{Key: "estimate_id", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.M{"estimate_id": bson.M{"$exists": true}}),
			},
			{Keys: bson.D{{Key: "contact_id", Value: 1}, {Key: "status", Value: 1}}},
		},
		colInvoices: {
			{Keys: bson.D{{Key: "number", Value: 1}}, Options: options.Index().SetUnique(true)},
			{
				Keys: bson.D{{Key: "installment_key", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.M{"installment_key": bson.M{"$exists": true}}),
			},
			{Keys: bson.D{{Key: "contact_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "contract_id", Value: 1}}},
			{Keys: bson.D{{Key: "due_date", Value: 1}}},
		},
		colPayments: {
			{Keys: bson.D{{Key: "invoice_id", Value: 1}, {Key: "seq", Value: 1}}},
			{
				Keys: bson.D{{Key: "reverses", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.M{"reverses": bson.M{"$exists": true}}),
			},
		},
		colAudit: {
			{Keys: bson.D{{Key: "document_id", Value: 1}, {Key: "at", Value: 1}}},
		},
	}
}

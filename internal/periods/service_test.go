package periods_test

import (
	"log/slog"
	"os"
	"sort"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	errors "github.com/muzaffarov/bozor-billing/internal"
	"github.com/muzaffarov/bozor-billing/internal/core/datamodel/billing"
	"github.com/muzaffarov/bozor-billing/internal/core/datamodel/transaction"
	"github.com/muzaffarov/bozor-billing/internal/ledger"
	"github.com/muzaffarov/bozor-billing/internal/periods"
)

func TestPeriodsService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Periods Service Suite")
}

type periodKey struct {
	contractID int64
	start      time.Time
}

// Mock repository keyed the way the unique index is.
type mockPeriodRepository struct {
	periods     map[periodKey]*billing.ContractPaymentPeriod
	nextID      int64
	upsertError error
}

func newMockPeriodRepository() *mockPeriodRepository {
	return &mockPeriodRepository{
		periods: make(map[periodKey]*billing.ContractPaymentPeriod),
		nextID:  1,
	}
}

func (m *mockPeriodRepository) HasAny(contractID int64) (bool, error) {
	for k := range m.periods {
		if k.contractID == contractID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockPeriodRepository) List(contractID int64) ([]*billing.ContractPaymentPeriod, error) {
	var result []*billing.ContractPaymentPeriod
	for k, p := range m.periods {
		if k.contractID == contractID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].PeriodStart.Before(result[j].PeriodStart)
	})
	return result, nil
}

func (m *mockPeriodRepository) LatestPaid(contractID int64) (*billing.ContractPaymentPeriod, error) {
	var latest *billing.ContractPaymentPeriod
	for k, p := range m.periods {
		if k.contractID == contractID && p.Status == billing.PeriodStatusPaid {
			if latest == nil || p.PeriodStart.After(latest.PeriodStart) {
				latest = p
			}
		}
	}
	return latest, nil
}

func (m *mockPeriodRepository) GetByStart(contractID int64, periodStart time.Time) (*billing.ContractPaymentPeriod, error) {
	p, exists := m.periods[periodKey{contractID, periodStart}]
	if !exists {
		return nil, nil
	}
	return p, nil
}

func (m *mockPeriodRepository) GetByTransactionID(transactionID int64) ([]*billing.ContractPaymentPeriod, error) {
	var result []*billing.ContractPaymentPeriod
	for _, p := range m.periods {
		if p.TransactionID != nil && *p.TransactionID == transactionID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].PeriodStart.Before(result[j].PeriodStart)
	})
	return result, nil
}

func (m *mockPeriodRepository) UpsertRange(ps []*billing.ContractPaymentPeriod) error {
	if m.upsertError != nil {
		return m.upsertError
	}
	for _, p := range ps {
		key := periodKey{p.ContractID, p.PeriodStart}
		if existing, exists := m.periods[key]; exists {
			p.ID = existing.ID
		} else {
			p.ID = m.nextID
			m.nextID++
		}
		p.CreatedAt = time.Now().UTC()
		m.periods[key] = p
	}
	return nil
}

type mockContractSource struct {
	contracts map[int64]*billing.Contract
}

func (m *mockContractSource) GetContract(id int64) (*billing.Contract, error) {
	return m.contracts[id], nil
}

type mockTransactionSource struct {
	paid        map[int64][]*transaction.Transaction
	externalIDs map[string]bool
	nextID      int64
}

func newMockTransactionSource() *mockTransactionSource {
	return &mockTransactionSource{
		paid:        make(map[int64][]*transaction.Transaction),
		externalIDs: make(map[string]bool),
		nextID:      100,
	}
}

func (m *mockTransactionSource) PaidByContract(contractID int64) ([]*transaction.Transaction, error) {
	return m.paid[contractID], nil
}

func (m *mockTransactionSource) CreatePaid(tx *transaction.Transaction) error {
	if m.externalIDs[tx.ExternalID] {
		return ledger.ErrDuplicateRef
	}
	m.externalIDs[tx.ExternalID] = true
	tx.ID = m.nextID
	m.nextID++
	tx.CreatedAt = time.Now().UTC()
	if tx.ContractID != nil {
		m.paid[*tx.ContractID] = append(m.paid[*tx.ContractID], tx)
	}
	return nil
}

func month(year int, m time.Month) time.Time {
	return time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
}

func paidTx(id, contractID int64, amount string, performedAt time.Time) *transaction.Transaction {
	return &transaction.Transaction{
		ID:            id,
		ExternalID:    "tx-" + performedAt.Format("20060102150405"),
		Amount:        decimal.RequireFromString(amount),
		Status:        transaction.StatusPaid,
		PaymentMethod: transaction.MethodClick,
		ContractID:    &contractID,
		State:         transaction.StatePaid,
		PerformedAt:   &performedAt,
		CreatedAt:     performedAt,
	}
}

var _ = Describe("PeriodsService", func() {
	var (
		service   *periods.Service
		mockRepo  *mockPeriodRepository
		contracts *mockContractSource
		txSource  *mockTransactionSource
	)

	issueDate := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	BeforeEach(func() {
		mockRepo = newMockPeriodRepository()
		contracts = &mockContractSource{contracts: map[int64]*billing.Contract{
			1: {
				ID:             1,
				StoreID:        10,
				IsActive:       true,
				ShopMonthlyFee: decimal.RequireFromString("500000"),
				IssueDate:      &issueDate,
			},
		}}
		txSource = newMockTransactionSource()
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = periods.NewService(mockRepo, contracts, txSource, logger)
	})

	Describe("RecordPaidTransaction", func() {
		Context("when a three-month payment arrives with no prior history", func() {
			It("should backfill so the last covered month is the payment month", func() {
				tx := paidTx(1, 1, "1500000", time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))

				allocated, err := service.RecordPaidTransaction(tx)

				Expect(err).ToNot(HaveOccurred())
				Expect(allocated).To(HaveLen(3))
				Expect(allocated[0].PeriodStart).To(Equal(month(2024, time.April)))
				Expect(allocated[1].PeriodStart).To(Equal(month(2024, time.May)))
				Expect(allocated[2].PeriodStart).To(Equal(month(2024, time.June)))
				// period ends are exclusive month boundaries
				Expect(allocated[2].PeriodEnd).To(Equal(month(2024, time.July)))
				for _, p := range allocated {
					Expect(p.Status).To(Equal(billing.PeriodStatusPaid))
					Expect(p.PeriodEnd).To(Equal(p.PeriodStart.AddDate(0, 1, 0)))
					Expect(p.Amount.Equal(decimal.RequireFromString("500000"))).To(BeTrue())
					Expect(*p.TransactionID).To(Equal(int64(1)))
				}
			})
		})

		Context("when the backfill would reach before the contract issue month", func() {
			It("should floor the window at the issue month", func() {
				tx := paidTx(2, 1, "1500000", time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC))

				allocated, err := service.RecordPaidTransaction(tx)

				Expect(err).ToNot(HaveOccurred())
				Expect(allocated).To(HaveLen(3))
				Expect(allocated[0].PeriodStart).To(Equal(month(2024, time.January)))
				Expect(allocated[2].PeriodStart).To(Equal(month(2024, time.March)))
			})
		})

		Context("when a paid history exists", func() {
			It("should continue from the month after the latest paid period", func() {
				first := paidTx(3, 1, "1500000", time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))
				_, err := service.RecordPaidTransaction(first)
				Expect(err).ToNot(HaveOccurred())

				second := paidTx(4, 1, "500000", time.Date(2024, 6, 20, 10, 0, 0, 0, time.UTC))
				allocated, err := service.RecordPaidTransaction(second)

				Expect(err).ToNot(HaveOccurred())
				Expect(allocated).To(HaveLen(1))
				Expect(allocated[0].PeriodStart).To(Equal(month(2024, time.July)))
			})
		})

		Context("when the amount is not an exact multiple", func() {
			It("should round to the nearest month count", func() {
				// 1.4 months rounds to 1
				tx := paidTx(5, 1, "700000", time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))
				allocated, err := service.RecordPaidTransaction(tx)

				Expect(err).ToNot(HaveOccurred())
				Expect(allocated).To(HaveLen(1))
				Expect(allocated[0].PeriodStart).To(Equal(month(2024, time.June)))

				// 1.6 months rounds to 2
				tx2 := paidTx(6, 1, "800000", time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC))
				allocated, err = service.RecordPaidTransaction(tx2)

				Expect(err).ToNot(HaveOccurred())
				Expect(allocated).To(HaveLen(2))
				Expect(allocated[0].PeriodStart).To(Equal(month(2024, time.July)))
				Expect(allocated[1].PeriodStart).To(Equal(month(2024, time.August)))
			})
		})

		Context("when the amount is far below the fee", func() {
			It("should still cover at least one month", func() {
				tx := paidTx(7, 1, "100000", time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))

				allocated, err := service.RecordPaidTransaction(tx)

				Expect(err).ToNot(HaveOccurred())
				Expect(allocated).To(HaveLen(1))
			})
		})

		Context("when the same transaction is allocated twice", func() {
			It("should return the existing periods without creating more", func() {
				tx := paidTx(8, 1, "1500000", time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))

				first, err := service.RecordPaidTransaction(tx)
				Expect(err).ToNot(HaveOccurred())

				second, err := service.RecordPaidTransaction(tx)
				Expect(err).ToNot(HaveOccurred())
				Expect(second).To(HaveLen(len(first)))
				Expect(len(mockRepo.periods)).To(Equal(3))
			})
		})

		Context("when the contract has no monthly fee", func() {
			It("should return the fee not configured error", func() {
				contracts.contracts[2] = &billing.Contract{ID: 2, StoreID: 11, IsActive: true}
				tx := paidTx(9, 2, "500000", time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))

				allocated, err := service.RecordPaidTransaction(tx)

				Expect(err).To(Equal(errors.ErrFeeNotConfigured))
				Expect(allocated).To(BeNil())
			})
		})

		Context("when the transaction has no contract", func() {
			It("should allocate nothing", func() {
				attendanceID := int64(42)
				tx := &transaction.Transaction{ID: 10, Status: transaction.StatusPaid, AttendanceID: &attendanceID}

				allocated, err := service.RecordPaidTransaction(tx)

				Expect(err).ToNot(HaveOccurred())
				Expect(allocated).To(BeNil())
				Expect(mockRepo.periods).To(BeEmpty())
			})
		})
	})

	Describe("RecordManualPayment", func() {
		Context("when the amount is an exact multiple of the fee", func() {
			It("should create a paid cash transaction and allocate the months", func() {
				amount := decimal.RequireFromString("1000000")
				input := periods.ManualPaymentInput{
					TransferNumber: "KASSA-778",
					TransferDate:   time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
					Amount:         &amount,
					Notes:          "front desk",
				}

				allocated, err := service.RecordManualPayment(1, input, 55)

				Expect(err).ToNot(HaveOccurred())
				Expect(allocated).To(HaveLen(2))
				Expect(*allocated[0].CreatedByID).To(Equal(int64(55)))
				Expect(*allocated[0].Notes).To(Equal("front desk"))
				Expect(txSource.externalIDs["KASSA-778"]).To(BeTrue())
			})
		})

		Context("when the amount is not a multiple of the fee", func() {
			It("should reject the payment", func() {
				amount := decimal.RequireFromString("750000")
				input := periods.ManualPaymentInput{
					TransferNumber: "KASSA-779",
					TransferDate:   time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
					Amount:         &amount,
				}

				allocated, err := service.RecordManualPayment(1, input, 55)

				Expect(err).To(Equal(errors.ErrAmountNotMultiple))
				Expect(allocated).To(BeNil())
				Expect(mockRepo.periods).To(BeEmpty())
			})
		})

		Context("when the transfer number was already used", func() {
			It("should reject the duplicate", func() {
				months := 1
				input := periods.ManualPaymentInput{
					TransferNumber: "KASSA-780",
					TransferDate:   time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
					Months:         &months,
				}

				_, err := service.RecordManualPayment(1, input, 55)
				Expect(err).ToNot(HaveOccurred())

				_, err = service.RecordManualPayment(1, input, 55)
				Expect(err).To(Equal(errors.ErrDuplicateTransfer))
			})
		})

		Context("when an explicit start month targets an already paid period", func() {
			It("should reject the payment", func() {
				tx := paidTx(11, 1, "500000", time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))
				_, err := service.RecordPaidTransaction(tx)
				Expect(err).ToNot(HaveOccurred())

				months := 1
				input := periods.ManualPaymentInput{
					TransferNumber: "KASSA-781",
					TransferDate:   time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
					Months:         &months,
					StartMonth:     "2024-06",
				}

				_, err = service.RecordManualPayment(1, input, 55)
				Expect(err).To(Equal(errors.ErrPeriodAlreadyPaid))
			})
		})

		Context("when the current month is already marked paid", func() {
			It("should reject without creating a cash transaction", func() {
				tx := paidTx(12, 1, "500000", time.Now().UTC())
				_, err := service.RecordPaidTransaction(tx)
				Expect(err).ToNot(HaveOccurred())

				months := 1
				input := periods.ManualPaymentInput{
					TransferNumber: "KASSA-784",
					TransferDate:   time.Now().UTC(),
					Months:         &months,
				}

				_, err = service.RecordManualPayment(1, input, 55)

				Expect(err).To(Equal(errors.ErrPeriodAlreadyPaid))
				Expect(txSource.externalIDs).ToNot(HaveKey("KASSA-784"))
			})
		})

		Context("when months is given without an amount", func() {
			It("should charge fee times months from an explicit start", func() {
				months := 2
				input := periods.ManualPaymentInput{
					TransferNumber: "KASSA-782",
					TransferDate:   time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
					Months:         &months,
					StartMonth:     "2024-09",
				}

				allocated, err := service.RecordManualPayment(1, input, 55)

				Expect(err).ToNot(HaveOccurred())
				Expect(allocated).To(HaveLen(2))
				Expect(allocated[0].PeriodStart).To(Equal(month(2024, time.September)))
				Expect(allocated[1].PeriodStart).To(Equal(month(2024, time.October)))
			})
		})

		Context("when neither amount nor months is given", func() {
			It("should fail validation", func() {
				input := periods.ManualPaymentInput{
					TransferNumber: "KASSA-783",
					TransferDate:   time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
				}

				_, err := service.RecordManualPayment(1, input, 55)

				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("EnsureSeeded", func() {
		Context("when the contract has paid transactions but no periods", func() {
			It("should replay them oldest first", func() {
				txSource.paid[1] = []*transaction.Transaction{
					paidTx(20, 1, "1000000", time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)),
					paidTx(21, 1, "500000", time.Date(2024, 5, 5, 10, 0, 0, 0, time.UTC)),
				}

				err := service.EnsureSeeded(1)

				Expect(err).ToNot(HaveOccurred())
				list, _ := mockRepo.List(1)
				Expect(list).To(HaveLen(3))
				Expect(list[0].PeriodStart).To(Equal(month(2024, time.February)))
				Expect(list[1].PeriodStart).To(Equal(month(2024, time.March)))
				// second payment continues forward from the paid history
				Expect(list[2].PeriodStart).To(Equal(month(2024, time.April)))
			})
		})

		Context("when the contract already has periods", func() {
			It("should not touch them", func() {
				tx := paidTx(22, 1, "500000", time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))
				_, err := service.RecordPaidTransaction(tx)
				Expect(err).ToNot(HaveOccurred())
				txSource.paid[1] = []*transaction.Transaction{tx}

				err = service.EnsureSeeded(1)

				Expect(err).ToNot(HaveOccurred())
				Expect(len(mockRepo.periods)).To(Equal(1))
			})
		})
	})

	Describe("HasCurrentPeriodPaid", func() {
		Context("when the current month has a paid period", func() {
			It("should report paid", func() {
				now := time.Now().UTC()
				tx := paidTx(30, 1, "500000", now)
				_, err := service.RecordPaidTransaction(tx)
				Expect(err).ToNot(HaveOccurred())

				paid, err := service.HasCurrentPeriodPaid(contracts.contracts[1])

				Expect(err).ToNot(HaveOccurred())
				Expect(paid).To(BeTrue())
			})
		})

		Context("when nothing is allocated", func() {
			It("should report unpaid", func() {
				paid, err := service.HasCurrentPeriodPaid(contracts.contracts[1])

				Expect(err).ToNot(HaveOccurred())
				Expect(paid).To(BeFalse())
			})
		})
	})

	Describe("GetSnapshot", func() {
		Context("when the contract is paid months ahead", func() {
			It("should report paid-through and months ahead", func() {
				now := time.Now().UTC()
				tx := paidTx(40, 1, "1500000", now)
				_, err := service.RecordPaidTransaction(tx)
				Expect(err).ToNot(HaveOccurred())

				snapshot, err := service.GetSnapshot(1)

				Expect(err).ToNot(HaveOccurred())
				Expect(snapshot.CurrentPaid).To(BeTrue())
				Expect(snapshot.MonthsAhead).To(Equal(1))
				Expect(snapshot.PaidThrough).ToNot(BeNil())
			})
		})

		Context("when nothing is allocated", func() {
			It("should point the next period at the current month", func() {
				snapshot, err := service.GetSnapshot(1)

				Expect(err).ToNot(HaveOccurred())
				Expect(snapshot.CurrentPaid).To(BeFalse())
				Expect(snapshot.PaidThrough).To(BeNil())
				currentMonth := time.Now().UTC()
				Expect(snapshot.NextPeriodStart.Month()).To(Equal(currentMonth.Month()))
			})
		})

		Context("when the contract does not exist", func() {
			It("should return contract not found", func() {
				snapshot, err := service.GetSnapshot(99)

				Expect(err).To(Equal(errors.ErrContractNotFound))
				Expect(snapshot).To(BeNil())
			})
		})
	})
})

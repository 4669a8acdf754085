package billable_test

import (
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	errors "github.com/muzaffarov/bozor-billing/internal"
	"github.com/muzaffarov/bozor-billing/internal/billable"
	"github.com/muzaffarov/bozor-billing/internal/core/datamodel/billing"
)

func TestBillableResolver(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Billable Resolver Suite")
}

type mockBillableRepository struct {
	stores      map[string]*billing.Store
	contracts   map[string]*billing.Contract
	attendances map[int64]*billing.Attendance
	paidToday   map[int64]bool
}

func newMockBillableRepository() *mockBillableRepository {
	return &mockBillableRepository{
		stores:      make(map[string]*billing.Store),
		contracts:   make(map[string]*billing.Contract),
		attendances: make(map[int64]*billing.Attendance),
		paidToday:   make(map[int64]bool),
	}
}

func (m *mockBillableRepository) FindStoreContract(storeNumber string) (*billing.Store, *billing.Contract, error) {
	store, ok := m.stores[storeNumber]
	if !ok {
		return nil, nil, nil
	}
	return store, m.contracts[storeNumber], nil
}

func (m *mockBillableRepository) GetAttendance(attendanceID int64) (*billing.Attendance, error) {
	return m.attendances[attendanceID], nil
}

func (m *mockBillableRepository) HasPaidTransactionForAttendance(attendanceID int64, from, to time.Time) (bool, error) {
	return m.paidToday[attendanceID], nil
}

type mockPeriodChecker struct {
	currentPaid map[int64]bool
}

func (m *mockPeriodChecker) HasCurrentPeriodPaid(contract *billing.Contract) (bool, error) {
	return m.currentPaid[contract.ID], nil
}

var _ = Describe("Resolver", func() {
	var (
		repo     *mockBillableRepository
		checker  *mockPeriodChecker
		resolver *billable.Resolver
	)

	BeforeEach(func() {
		repo = newMockBillableRepository()
		checker = &mockPeriodChecker{currentPaid: make(map[int64]bool)}

		repo.stores["A-101"] = &billing.Store{ID: 1, StoreNumber: "A-101"}
		repo.contracts["A-101"] = &billing.Contract{
			ID:             10,
			StoreID:        1,
			IsActive:       true,
			ShopMonthlyFee: decimal.RequireFromString("500000"),
		}
		repo.attendances[42] = &billing.Attendance{
			ID:     42,
			Amount: decimal.RequireFromString("15000"),
			Status: billing.AttendanceStatusPending,
			Date:   time.Now().UTC(),
		}

		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		resolver = billable.NewResolver(repo, checker, logger)
	})

	Describe("ResolveContract", func() {
		Context("when the contract is active and the month unpaid", func() {
			It("should return a payable contract billable", func() {
				b, err := resolver.ResolveContract("A-101")

				Expect(err).ToNot(HaveOccurred())
				Expect(b.Kind).To(Equal(billable.KindContract))
				Expect(b.Payable).To(BeTrue())
				Expect(b.ExpectedAmount.Equal(decimal.RequireFromString("500000"))).To(BeTrue())

				contractID, attendanceID := b.Ref()
				Expect(attendanceID).To(BeNil())
				Expect(*contractID).To(Equal(int64(10)))
			})
		})

		Context("when the current month is already paid", func() {
			It("should return a non-payable billable", func() {
				checker.currentPaid[10] = true

				b, err := resolver.ResolveContract("A-101")

				Expect(err).ToNot(HaveOccurred())
				Expect(b.Payable).To(BeFalse())
			})
		})

		Context("when the contract is inactive", func() {
			It("should return a non-payable billable without consulting periods", func() {
				repo.contracts["A-101"].IsActive = false
				checker.currentPaid[10] = false

				b, err := resolver.ResolveContract("A-101")

				Expect(err).ToNot(HaveOccurred())
				Expect(b.Payable).To(BeFalse())
			})
		})

		Context("when the store is unknown", func() {
			It("should return contract not found", func() {
				_, err := resolver.ResolveContract("Z-999")

				Expect(err).To(Equal(errors.ErrContractNotFound))
			})
		})
	})

	Describe("ResolveAttendance", func() {
		Context("when the attendance is pending", func() {
			It("should return a payable attendance billable", func() {
				b, err := resolver.ResolveAttendance(42)

				Expect(err).ToNot(HaveOccurred())
				Expect(b.Kind).To(Equal(billable.KindAttendance))
				Expect(b.Payable).To(BeTrue())
				Expect(b.ExpectedAmount.Equal(decimal.RequireFromString("15000"))).To(BeTrue())
			})
		})

		Context("when the attendance is already marked paid", func() {
			It("should return a non-payable billable", func() {
				repo.attendances[42].Status = billing.AttendanceStatusPaid

				b, err := resolver.ResolveAttendance(42)

				Expect(err).ToNot(HaveOccurred())
				Expect(b.Payable).To(BeFalse())
			})
		})

		Context("when a paid transaction exists for today", func() {
			It("should return a non-payable billable", func() {
				repo.paidToday[42] = true

				b, err := resolver.ResolveAttendance(42)

				Expect(err).ToNot(HaveOccurred())
				Expect(b.Payable).To(BeFalse())
			})
		})

		Context("when the attendance does not exist", func() {
			It("should return attendance not found", func() {
				_, err := resolver.ResolveAttendance(9999)

				Expect(err).To(Equal(errors.ErrAttendanceNotFound))
			})
		})
	})

	Describe("Resolve", func() {
		Context("when the reference is a known attendance id", func() {
			It("should resolve the attendance", func() {
				b, err := resolver.Resolve("42")

				Expect(err).ToNot(HaveOccurred())
				Expect(b.Kind).To(Equal(billable.KindAttendance))
			})
		})

		Context("when the reference is numeric but no attendance matches", func() {
			It("should fall back to the store number lookup", func() {
				repo.stores["7777"] = &billing.Store{ID: 2, StoreNumber: "7777"}
				repo.contracts["7777"] = &billing.Contract{
					ID:             20,
					StoreID:        2,
					IsActive:       true,
					ShopMonthlyFee: decimal.RequireFromString("700000"),
				}

				b, err := resolver.Resolve("7777")

				Expect(err).ToNot(HaveOccurred())
				Expect(b.Kind).To(Equal(billable.KindContract))
			})
		})

		Context("when the reference is a store number", func() {
			It("should resolve the contract", func() {
				b, err := resolver.Resolve("A-101")

				Expect(err).ToNot(HaveOccurred())
				Expect(b.Kind).To(Equal(billable.KindContract))
			})
		})

		Context("when nothing matches", func() {
			It("should return contract not found", func() {
				_, err := resolver.Resolve("nope")

				Expect(err).To(Equal(errors.ErrContractNotFound))
			})
		})
	})
})

package postgres

import (
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/muzaffarov/bozor-billing/internal/core/datamodel/billing"
)

func TestPeriodRepository(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Period Repository Suite")
}

var _ = ginkgo.Describe("PeriodRepository", func() {
	var (
		db   *gorm.DB
		repo *PeriodRepository
	)

	ginkgo.BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			NowFunc: func() time.Time {
				return time.Now().UTC()
			},
		})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		err = db.AutoMigrate(&billing.ContractPaymentPeriod{})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		repo = NewPeriodRepository(db)
	})

	month := func(year int, m time.Month) time.Time {
		return time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
	}

	paidPeriod := func(contractID int64, start time.Time, amount string) *billing.ContractPaymentPeriod {
		return &billing.ContractPaymentPeriod{
			ContractID:  contractID,
			PeriodStart: start,
			PeriodEnd:   start.AddDate(0, 1, 0),
			Status:      billing.PeriodStatusPaid,
			Amount:      decimal.RequireFromString(amount),
		}
	}

	ginkgo.Describe("UpsertRange", func() {
		ginkgo.Context("when the months are new", func() {
			ginkgo.It("should insert one row per month", func() {
				err := repo.UpsertRange([]*billing.ContractPaymentPeriod{
					paidPeriod(1, month(2024, time.March), "500000"),
					paidPeriod(1, month(2024, time.April), "500000"),
				})
				gomega.Expect(err).ToNot(gomega.HaveOccurred())

				periods, err := repo.List(1)
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(periods).To(gomega.HaveLen(2))
				gomega.Expect(periods[0].PeriodStart).To(gomega.BeTemporally("==", month(2024, time.March)))
				gomega.Expect(periods[1].PeriodStart).To(gomega.BeTemporally("==", month(2024, time.April)))
			})
		})

		ginkgo.Context("when a month already exists for the contract", func() {
			ginkgo.It("should update the row instead of duplicating it", func() {
				txID := int64(77)
				first := paidPeriod(1, month(2024, time.March), "500000")
				gomega.Expect(repo.UpsertRange([]*billing.ContractPaymentPeriod{first})).To(gomega.Succeed())

				replay := paidPeriod(1, month(2024, time.March), "500000")
				replay.TransactionID = &txID
				gomega.Expect(repo.UpsertRange([]*billing.ContractPaymentPeriod{replay})).To(gomega.Succeed())

				periods, err := repo.List(1)
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(periods).To(gomega.HaveLen(1))
				gomega.Expect(periods[0].TransactionID).ToNot(gomega.BeNil())
				gomega.Expect(*periods[0].TransactionID).To(gomega.Equal(txID))
			})
		})

		ginkgo.Context("when another contract has the same month", func() {
			ginkgo.It("should keep both rows", func() {
				gomega.Expect(repo.UpsertRange([]*billing.ContractPaymentPeriod{
					paidPeriod(1, month(2024, time.March), "500000"),
					paidPeriod(2, month(2024, time.March), "700000"),
				})).To(gomega.Succeed())

				one, err := repo.List(1)
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				two, err := repo.List(2)
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(one).To(gomega.HaveLen(1))
				gomega.Expect(two).To(gomega.HaveLen(1))
			})
		})
	})

	ginkgo.Describe("LatestPaid", func() {
		ginkgo.Context("when paid months exist", func() {
			ginkgo.It("should return the most recent one", func() {
				gomega.Expect(repo.UpsertRange([]*billing.ContractPaymentPeriod{
					paidPeriod(1, month(2024, time.March), "500000"),
					paidPeriod(1, month(2024, time.May), "500000"),
					paidPeriod(1, month(2024, time.April), "500000"),
				})).To(gomega.Succeed())

				latest, err := repo.LatestPaid(1)

				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(latest).ToNot(gomega.BeNil())
				gomega.Expect(latest.PeriodStart).To(gomega.BeTemporally("==", month(2024, time.May)))
			})
		})

		ginkgo.Context("when the contract has no paid months", func() {
			ginkgo.It("should return nil without error", func() {
				pending := paidPeriod(1, month(2024, time.March), "500000")
				pending.Status = billing.PeriodStatusPending
				gomega.Expect(repo.UpsertRange([]*billing.ContractPaymentPeriod{pending})).To(gomega.Succeed())

				latest, err := repo.LatestPaid(1)

				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(latest).To(gomega.BeNil())
			})
		})
	})

	ginkgo.Describe("GetByStart", func() {
		ginkgo.It("should find a month by exact start and miss on others", func() {
			gomega.Expect(repo.UpsertRange([]*billing.ContractPaymentPeriod{
				paidPeriod(1, month(2024, time.March), "500000"),
			})).To(gomega.Succeed())

			found, err := repo.GetByStart(1, month(2024, time.March))
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(found).ToNot(gomega.BeNil())

			missing, err := repo.GetByStart(1, month(2024, time.April))
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(missing).To(gomega.BeNil())
		})
	})

	ginkgo.Describe("HasAny", func() {
		ginkgo.It("should report whether the contract has rows", func() {
			has, err := repo.HasAny(1)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(has).To(gomega.BeFalse())

			gomega.Expect(repo.UpsertRange([]*billing.ContractPaymentPeriod{
				paidPeriod(1, month(2024, time.March), "500000"),
			})).To(gomega.Succeed())

			has, err = repo.HasAny(1)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(has).To(gomega.BeTrue())
		})
	})

	ginkgo.Describe("GetByTransactionID", func() {
		ginkgo.It("should return only the months funded by the transaction", func() {
			txID := int64(42)
			funded := paidPeriod(1, month(2024, time.March), "500000")
			funded.TransactionID = &txID
			other := paidPeriod(1, month(2024, time.April), "500000")
			gomega.Expect(repo.UpsertRange([]*billing.ContractPaymentPeriod{funded, other})).To(gomega.Succeed())

			periods, err := repo.GetByTransactionID(txID)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(periods).To(gomega.HaveLen(1))
			gomega.Expect(periods[0].PeriodStart).To(gomega.BeTemporally("==", month(2024, time.March)))
		})
	})
})

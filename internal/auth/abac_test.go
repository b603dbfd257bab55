package auth_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/expensehub/expensehub/internal/auth"
	"github.com/expensehub/expensehub/internal/user"
)

var _ = Describe("ABACPolicy", func() {
	var (
		policy *auth.ABACPolicy
		owner  *auth.User
	)

	viewer := func(id int64, role string) *auth.User {
		return &auth.User{ID: id, Role: role, CompanyID: 1, Permissions: user.PermissionsForRole(role)}
	}

	BeforeEach(func() {
		policy = &auth.ABACPolicy{}
		owner = viewer(10, user.RoleEmployee)
	})

	Describe("CanViewExpense", func() {
		It("allows the owner", func() {
			attrs := auth.ExpenseAttrs{OwnerID: owner.ID}

			Expect(policy.CanViewExpense(owner, attrs)).To(Succeed())
		})

		It("denies another employee", func() {
			attrs := auth.ExpenseAttrs{OwnerID: owner.ID}

			Expect(policy.CanViewExpense(viewer(11, user.RoleEmployee), attrs)).To(MatchError(auth.ErrForbidden))
		})

		It("allows company-wide viewers", func() {
			attrs := auth.ExpenseAttrs{OwnerID: owner.ID}

			Expect(policy.CanViewExpense(viewer(12, user.RoleFinance), attrs)).To(Succeed())
		})

		It("allows the currently assigned approver", func() {
			approverID := int64(20)
			attrs := auth.ExpenseAttrs{OwnerID: owner.ID, CurrentApproverID: &approverID}

			Expect(policy.CanViewExpense(viewer(20, user.RoleManager), attrs)).To(Succeed())
		})

		It("allows the owner's manager through team visibility", func() {
			managerID := int64(20)
			attrs := auth.ExpenseAttrs{OwnerID: owner.ID, OwnerManagerID: &managerID}

			Expect(policy.CanViewExpense(viewer(20, user.RoleManager), attrs)).To(Succeed())
		})

		It("denies a manager outside the chain", func() {
			managerID := int64(20)
			approverID := int64(20)
			attrs := auth.ExpenseAttrs{OwnerID: owner.ID, OwnerManagerID: &managerID, CurrentApproverID: &approverID}

			Expect(policy.CanViewExpense(viewer(21, user.RoleManager), attrs)).To(MatchError(auth.ErrForbidden))
		})
	})

	Describe("Allow", func() {
		It("never lets approvers approve their own expense", func() {
			manager := viewer(20, user.RoleManager)

			Expect(policy.Allow(manager, manager.ID, "approve")).To(BeFalse())
		})

		It("lets admins do anything", func() {
			Expect(policy.Allow(viewer(1, user.RoleAdmin), owner.ID, "delete")).To(BeTrue())
		})
	})
})

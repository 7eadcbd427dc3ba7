package orders

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/printflow-erp/printflow-erp/internal/shared"
)

func TestStatusSetIsComplete(t *testing.T) {
	all := AllStatuses()
	require.Len(t, all, 21)
	seen := make(map[Status]bool)
	for _, s := range all {
		require.True(t, s.Valid(), "status %s must be valid", s)
		require.False(t, seen[s], "status %s duplicated", s)
		seen[s] = true
	}
}

func TestCanonicalPathIsWalkable(t *testing.T) {
	path := []Status{
		StatusDraft, StatusPendingCEOReview, StatusPendingDesign, StatusInDesign,
		StatusDesignReview, StatusDesignCompleted, StatusPendingMaterials,
		StatusMaterialsProgress, StatusMaterialsReady, StatusPendingPrinting,
		StatusInPrinting, StatusPrintingCompleted, StatusPendingPayment,
		StatusPaymentConfirmed, StatusReadyForDispatch, StatusInDispatch, StatusDelivered,
	}
	for i := 0; i < len(path)-1; i++ {
		require.True(t, CanTransition(path[i], path[i+1]), "%s -> %s must be allowed", path[i], path[i+1])
	}
}

func TestTerminalStatesAreAbsorbing(t *testing.T) {
	for _, terminal := range []Status{StatusDelivered, StatusCancelled, StatusRejectedByCEO} {
		require.True(t, terminal.Terminal())
		for _, to := range AllStatuses() {
			require.False(t, CanTransition(terminal, to), "%s -> %s must be rejected", terminal, to)
		}
	}
}

func TestEscapeHatchesFromEveryNonTerminalState(t *testing.T) {
	for _, from := range AllStatuses() {
		if from.Terminal() {
			continue
		}
		require.True(t, CanTransition(from, StatusCancelled), "%s -> cancelled", from)
		if from != StatusOnHold {
			require.True(t, CanTransition(from, StatusOnHold), "%s -> on_hold", from)
		}
	}
}

func TestOnHoldResumesToNonTerminalOnly(t *testing.T) {
	require.True(t, CanTransition(StatusOnHold, StatusInDesign))
	require.True(t, CanTransition(StatusOnHold, StatusPendingPayment))
	require.False(t, CanTransition(StatusOnHold, StatusDelivered))
	require.False(t, CanTransition(StatusOnHold, StatusRejectedByCEO))
	require.False(t, CanTransition(StatusOnHold, StatusOnHold))
}

func TestCEOReviewSideBranches(t *testing.T) {
	require.True(t, CanTransition(StatusPendingCEOReview, StatusRejectedByCEO))
	require.True(t, CanTransition(StatusPendingCEOReview, StatusReturnedToSales))
	require.True(t, CanTransition(StatusReturnedToSales, StatusPendingCEOReview))
}

func TestNoSkippingAlongCanonicalPath(t *testing.T) {
	require.False(t, CanTransition(StatusDraft, StatusPendingDesign))
	require.False(t, CanTransition(StatusInDesign, StatusDesignCompleted))
	require.False(t, CanTransition(StatusPendingPayment, StatusReadyForDispatch))
	require.False(t, CanTransition(StatusDelivered, StatusDraft))
}

func TestEveryStatusHasAnOwningDepartment(t *testing.T) {
	total := 0
	for _, dept := range shared.Departments() {
		owned := StatusesFor(dept)
		total += len(owned)
		for _, s := range owned {
			require.Equal(t, dept, DepartmentFor(s))
		}
	}
	require.Equal(t, len(AllStatuses()), total, "department subsets must partition the status set")
}

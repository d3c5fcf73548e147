package commands

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/xchicks/internal/domain/models"
	"github.com/mamadbah2/xchicks/internal/service/reporting"
)

const helpText = `Manager commands:
/approve <request> - approve a chick request
/reject <request> [reason] - reject a chick request
/approvefeed <allocation> - approve a feed allocation
/rejectfeed <allocation> - reject a feed allocation
/sales - sales summary at current prices
/stock - current stock levels`

// Allocator is the subset of the allocation engine reachable from chat.
type Allocator interface {
	ApproveChickRequest(ctx context.Context, requestID string, actor models.Actor) (models.ChickApproval, error)
	RejectChickRequest(ctx context.Context, requestID string, actor models.Actor, reason string) (models.ChickRequest, error)
	ApproveFeedRequest(ctx context.Context, allocID string, actor models.Actor) (models.FeedAllocation, error)
	RejectFeedRequest(ctx context.Context, allocID string, actor models.Actor) (models.FeedAllocation, error)
}

// Reporter provides the figures behind /sales and /stock.
type Reporter interface {
	SalesSummary(ctx context.Context) (models.SalesSummary, error)
	StockSummary(ctx context.Context) (models.StockSummary, error)
}

// Dispatcher executes parsed manager commands.
type Dispatcher interface {
	HandleCommand(ctx context.Context, cmd models.Command, actor models.Actor) models.Result
}

// Service implements the Dispatcher interface.
type Service struct {
	allocation Allocator
	reporting  Reporter
	logger     *zap.Logger
}

// NewService constructs a command dispatcher.
func NewService(allocation Allocator, reporting Reporter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		allocation: allocation,
		reporting:  reporting,
		logger:     logger,
	}
}

func missingArgument(cmd models.Command, what string) models.Result {
	return models.Failed(models.Invalid("arguments", "/%s needs %s", cmd.Type, what))
}

// HandleCommand runs cmd on behalf of actor and returns the structured outcome.
func (s *Service) HandleCommand(ctx context.Context, cmd models.Command, actor models.Actor) models.Result {
	s.logger.Debug("dispatching command",
		zap.String("command", string(cmd.Type)),
		zap.String("actor", actor.ID),
		zap.Strings("args", cmd.Args))

	switch cmd.Type {
	case models.CommandApprove:
		if len(cmd.Args) == 0 {
			return missingArgument(cmd, "a request id or code")
		}
		approval, err := s.allocation.ApproveChickRequest(ctx, cmd.Args[0], actor)
		if err != nil {
			return models.Failed(err)
		}
		batches := make([]string, 0, len(approval.Lines))
		for _, l := range approval.Lines {
			batches = append(batches, fmt.Sprintf("%s x%d", l.BatchName, l.Quantity))
		}
		msg := fmt.Sprintf("Approved %s: %d chicks from %s.", approval.Request.RequestCode, approval.Deducted(), strings.Join(batches, ", "))
		return models.Succeeded(msg, approval)

	case models.CommandReject:
		if len(cmd.Args) == 0 {
			return missingArgument(cmd, "a request id or code")
		}
		reason := strings.Join(cmd.Args[1:], " ")
		req, err := s.allocation.RejectChickRequest(ctx, cmd.Args[0], actor, reason)
		if err != nil {
			return models.Failed(err)
		}
		return models.Succeeded(fmt.Sprintf("Rejected %s.", req.RequestCode), req)

	case models.CommandApproveFeed:
		if len(cmd.Args) == 0 {
			return missingArgument(cmd, "an allocation id or code")
		}
		alloc, err := s.allocation.ApproveFeedRequest(ctx, cmd.Args[0], actor)
		if err != nil {
			return models.Failed(err)
		}
		msg := fmt.Sprintf("Approved %s: %d bags of %s, %s due by %s.",
			alloc.RequestCode, alloc.BagsAllocated, alloc.FeedName,
			alloc.AmountDue.StringFixed(2), alloc.PaymentDueDate.Format("2006-01-02"))
		return models.Succeeded(msg, alloc)

	case models.CommandRejectFeed:
		if len(cmd.Args) == 0 {
			return missingArgument(cmd, "an allocation id or code")
		}
		alloc, err := s.allocation.RejectFeedRequest(ctx, cmd.Args[0], actor)
		if err != nil {
			return models.Failed(err)
		}
		return models.Succeeded(fmt.Sprintf("Rejected feed allocation %s.", alloc.RequestCode), alloc)

	case models.CommandSales:
		if !actor.Can(models.CapViewReports) {
			return models.Failed(fmt.Errorf("%w: %s may not view reports", models.ErrForbidden, actor.Role))
		}
		summary, err := s.reporting.SalesSummary(ctx)
		if err != nil {
			return models.Failed(err)
		}
		return models.Succeeded(reporting.FormatSales(summary), summary)

	case models.CommandStock:
		if !actor.Can(models.CapViewStock) {
			return models.Failed(fmt.Errorf("%w: %s may not view stock", models.ErrForbidden, actor.Role))
		}
		summary, err := s.reporting.StockSummary(ctx)
		if err != nil {
			return models.Failed(err)
		}
		return models.Succeeded(reporting.FormatStock(summary), summary)

	case models.CommandHelp:
		return models.Succeeded(helpText, nil)

	default:
		return models.Failed(models.Invalid("command", "unknown command %q, send /help", strings.TrimSpace(cmd.Raw)))
	}
}

// Render turns a Result into chat text.
func Render(res models.Result) string {
	if res.Success {
		if len(res.Warnings) == 0 {
			return res.Message
		}
		return res.Message + "\nWarnings: " + strings.Join(res.Warnings, "; ")
	}
	switch res.ErrorKind {
	case models.KindInsufficientStock:
		return "Not enough stock: " + res.Message
	case models.KindInvalidState:
		return "Already decided: " + res.Message
	case models.KindContention:
		return "Busy, please retry: " + res.Message
	case models.KindNotFound:
		return "Not found: " + res.Message
	case models.KindForbidden:
		return "Not allowed: " + res.Message
	case models.KindValidationFailed:
		return res.Message
	default:
		return "Something went wrong, please try again later."
	}
}

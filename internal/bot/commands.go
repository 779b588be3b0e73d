package bot

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"blindbox/internal/domain"
	"blindbox/internal/errs"
	"blindbox/internal/service"
)

// Commands executes admin chat commands on behalf of the account linked to
// the sender's Telegram id. Authorization is left to AdminService.
type Commands struct {
	accounts *service.AccountService
	admin    *service.AdminService
	status   *service.StatusService
}

func NewCommands(accounts *service.AccountService, admin *service.AdminService, status *service.StatusService) *Commands {
	return &Commands{accounts: accounts, admin: admin, status: status}
}

// Handle runs one command and returns the HTML reply.
func (c *Commands) Handle(ctx context.Context, tgID int64, command, args string) string {
	if command == "start" || command == "help" {
		return helpMessage
	}

	acc, err := c.accounts.ByTelegram(ctx, tgID)
	if err != nil {
		if errs.Is(err, errs.ErrAccountNotFound) {
			return "❌ No account is linked to this Telegram id. Open the web app first."
		}
		return failure(err)
	}
	caller := acc.ID

	switch command {
	case "pools":
		return c.pools(ctx)
	case "inventory":
		return c.inventory(ctx, caller)
	case "ceiling":
		return c.ceiling(ctx, caller, args)
	case "issuer":
		return c.issuer(ctx, caller, args)
	case "ban":
		return c.ban(ctx, caller, args, true)
	case "unban":
		return c.ban(ctx, caller, args, false)
	case "blacklist":
		return c.blacklist(ctx, caller)
	case "events":
		return c.events(ctx, args)
	default:
		return "❌ Unknown command. Use /help for the list."
	}
}

const helpMessage = `<b>🤖 Admin commands</b>

<b>📊 State:</b>
/pools - Remaining ids per pool
/inventory - Counters with their maxima
/events [limit] - Recent events

<b>⚙️ Configuration:</b>
/ceiling &lt;counter&gt; &lt;value&gt; - Set an inventory counter
/issuer &lt;account_id&gt; - Set the issuer account

<b>🚫 Blacklist:</b>
/ban &lt;account_id&gt; - Block redemptions
/unban &lt;account_id&gt; - Unblock
/blacklist - List blocked accounts`

func failure(err error) string {
	return fmt.Sprintf("❌ Error: %v", err)
}

func (c *Commands) pools(ctx context.Context) string {
	pools, err := c.status.Pools(ctx)
	if err != nil {
		return failure(err)
	}
	var sb strings.Builder
	sb.WriteString("<b>📦 Pools</b>\n\n")
	for _, p := range pools {
		fmt.Fprintf(&sb, "• %s: %d\n", p.Pool, p.Remaining)
	}
	return sb.String()
}

func (c *Commands) inventory(ctx context.Context, caller int64) string {
	items, err := c.admin.Inventory(ctx, caller)
	if err != nil {
		return failure(err)
	}
	var sb strings.Builder
	sb.WriteString("<b>🎁 Inventory</b>\n\n")
	for _, it := range items {
		fmt.Fprintf(&sb, "• %s: %d / %d\n", it.Counter, it.Remaining, it.Maximum)
	}
	return sb.String()
}

func (c *Commands) ceiling(ctx context.Context, caller int64, args string) string {
	parts := strings.Fields(args)
	if len(parts) != 2 {
		return "❌ Usage: /ceiling <counter> <value>"
	}
	counter, err := domain.ParseCounter(parts[0])
	if err != nil {
		return failure(err)
	}
	value, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return "❌ Invalid value"
	}
	if err := c.admin.SetCeiling(ctx, caller, counter, value); err != nil {
		return failure(err)
	}
	return fmt.Sprintf("✅ %s set to %d", counter, value)
}

func parseAccount(args string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	return id, err == nil
}

func (c *Commands) issuer(ctx context.Context, caller int64, args string) string {
	id, ok := parseAccount(args)
	if !ok {
		return "❌ Usage: /issuer <account_id>"
	}
	if err := c.admin.SetIssuer(ctx, caller, id); err != nil {
		return failure(err)
	}
	return fmt.Sprintf("✅ Issuer is now account %d", id)
}

func (c *Commands) ban(ctx context.Context, caller int64, args string, add bool) string {
	id, ok := parseAccount(args)
	if !ok {
		return "❌ Usage: /ban <account_id> or /unban <account_id>"
	}
	if add {
		if err := c.admin.AddBlacklist(ctx, caller, id); err != nil {
			return failure(err)
		}
		return fmt.Sprintf("🚫 Account %d blacklisted", id)
	}
	if err := c.admin.RemoveBlacklist(ctx, caller, id); err != nil {
		return failure(err)
	}
	return fmt.Sprintf("✅ Account %d removed from blacklist", id)
}

func (c *Commands) blacklist(ctx context.Context, caller int64) string {
	ids, err := c.admin.Blacklist(ctx, caller)
	if err != nil {
		return failure(err)
	}
	if len(ids) == 0 {
		return "✅ Blacklist is empty"
	}
	var sb strings.Builder
	sb.WriteString("<b>🚫 Blacklisted accounts</b>\n\n")
	for _, id := range ids {
		fmt.Fprintf(&sb, "• %d\n", id)
	}
	return sb.String()
}

func (c *Commands) events(ctx context.Context, args string) string {
	limit := 10
	if n, err := strconv.Atoi(strings.TrimSpace(args)); err == nil && n > 0 && n <= 50 {
		limit = n
	}
	evts, err := c.status.Events(ctx, limit)
	if err != nil {
		return failure(err)
	}
	if len(evts) == 0 {
		return "❌ No events yet"
	}
	var sb strings.Builder
	sb.WriteString("<b>📜 Recent events</b>\n\n")
	for _, e := range evts {
		fmt.Fprintf(&sb, "• %s %s\n", e.Type, formatAttrs(e.Attributes))
	}
	return sb.String()
}

func formatAttrs(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + attrs[k]
	}
	return strings.Join(parts, " ")
}

package route

import "strings"

// NavItem はワークスペースのサイドバーメニュー項目。Iconはlucideのアイコン名。
type NavItem struct {
	Label string
	Path  string
	Icon  string
}

// ProviderMenu はプロバイダーワークスペースのメニュー（表示順）。
var ProviderMenu = []NavItem{
	{Label: "Dashboard", Path: "/provider/dashboard", Icon: "layout-dashboard"},
	{Label: "Subscriptions", Path: "/provider/subscriptions", Icon: "credit-card"},
	{Label: "Customers", Path: "/provider/customers", Icon: "users"},
	{Label: "Settings", Path: "/provider/settings", Icon: "settings"},
}

// CustomerMenu は顧客ワークスペースのメニュー（表示順）。
var CustomerMenu = []NavItem{
	{Label: "Dashboard", Path: "/customer/dashboard", Icon: "layout-dashboard"},
	{Label: "Subscriptions", Path: "/customer/subscriptions", Icon: "credit-card"},
}

// MenuFor はレイアウトに対応するメニューを返す。メニューを持たないレイアウトはnil。
func MenuFor(layout Layout) []NavItem {
	switch layout {
	case LayoutProvider:
		return ProviderMenu
	case LayoutCustomer:
		return CustomerMenu
	default:
		return nil
	}
}

// IsActive は現在のパスがメニュー項目と一致するか、セグメント単位の前方一致の場合にtrueを返す。
// "/provider/customers-archive" は "/provider/customers" に一致しない。
func (n NavItem) IsActive(current string) bool {
	return current == n.Path || strings.HasPrefix(current, n.Path+"/")
}

// ActiveItem はメニュー中で現在のパスに一致する項目を返す。
func ActiveItem(menu []NavItem, current string) (NavItem, bool) {
	for _, item := range menu {
		if item.IsActive(current) {
			return item, true
		}
	}
	return NavItem{}, false
}

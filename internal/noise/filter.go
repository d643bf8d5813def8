// Package noise rejects navigation, legal, advertising and off-site links
// that listing pages mix in with real articles.
package noise

import (
	"net/url"
	"regexp"
	"strings"
)

var titlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(查看|点击|了解|阅读|更多|详情|详细|进入|返回|下载|登录|注册|订阅)`),
	regexp.MustCompile(`^(首页|关于|联系|帮助|搜索|设置|个人中心)`),
	regexp.MustCompile(`(?i)^(view more|read more|learn more|click here|log in|sign in|sign up)\b`),
	regexp.MustCompile(`(?i)^(home|about|about us|contact|contact us|login|register|subscribe|more)$`),
	regexp.MustCompile(`(?i)(详情|更多|点击这里|\b(?:click|more|view|read))\s*[>»→]*\s*$`),
	regexp.MustCompile(`^[\s\d\-_./:|,，。·]+$`),
	regexp.MustCompile(`^[<>《》【】\[\]「」『』]+.*[<>《》【】\[\]「」『』]+$`),
	regexp.MustCompile(`(?i)&[a-z]+;|&#\d+;`),
	regexp.MustCompile(`(用户协议|服务协议|隐私政策|隐私声明|法律声明|免责声明|版权声明|使用条款)`),
	regexp.MustCompile(`(ICP备|网安备|京ICP|沪ICP|粤ICP|浙ICP|苏ICP|鲁ICP)`),
	regexp.MustCompile(`^[京沪粤浙苏鲁川渝闽湘鄂皖赣]?(公网安备|ICP)`),
	regexp.MustCompile(`^(广告|推广|赞助|合作伙伴|友情链接)`),
	regexp.MustCompile(`^(加入我们|联系我们|关于我们|公司介绍|招聘信息|诚聘英才)`),
	regexp.MustCompile(`^(意见反馈|投诉建议|客服中心|帮助中心)`),
}

var pathPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)/(usercenter|user[-_]?center|member|account|login|register|signup|signin)/`),
	regexp.MustCompile(`(?i)/(agreement|privacy|terms|policy|legal|disclaimer)\b`),
	regexp.MustCompile(`(?i)/(ad|ads|advert|banner|sponsor|promotion)/`),
	regexp.MustCompile(`(?i)/(download|upload|attachment|file)/`),
	regexp.MustCompile(`(?i)/(about|contact|help|faq|feedback|sitemap)\b`),
}

// hostRule matches a non-content host; path, when set, must prefix the URL path.
type hostRule struct {
	host     string
	path     string
	contains bool
}

var blockedHosts = []hostRule{
	{host: "beian.miit.gov.cn"},
	{host: "beian.gov.cn"},
	{host: "baidu.com", path: "/s"},
	{host: "google.com"},
	{host: "analytics.", contains: true},
	{host: "cnzz.com"},
	{host: "umeng.com"},
}

// IsNoise reports whether a resolved candidate should be discarded.
// baseHost is the listing page host; links outside it and its subdomains are noise.
func IsNoise(title, rawURL, baseHost string) bool {
	return NoisyTitle(title) || NoisyURL(rawURL, baseHost)
}

// NoisyTitle applies the title rule family only.
func NoisyTitle(title string) bool {
	title = strings.TrimSpace(title)
	if title == "" {
		return true
	}
	for _, p := range titlePatterns {
		if p.MatchString(title) {
			return true
		}
	}
	return false
}

// NoisyURL applies the path and host rule families.
func NoisyURL(rawURL, baseHost string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}

	for _, p := range pathPatterns {
		if p.MatchString(u.Path) {
			return true
		}
	}

	host := strings.ToLower(u.Hostname())
	for _, rule := range blockedHosts {
		if rule.matches(host, u.Path) {
			return true
		}
	}

	return !SameSite(host, baseHost)
}

// SameSite reports whether host equals base or is one of its subdomains.
func SameSite(host, base string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	base = strings.TrimSuffix(strings.ToLower(base), ".")
	if base == "" {
		return false
	}
	return host == base || strings.HasSuffix(host, "."+base)
}

func (r hostRule) matches(host, path string) bool {
	if r.contains {
		return strings.Contains(host, r.host)
	}
	if host != r.host && !strings.HasSuffix(host, "."+r.host) {
		return false
	}
	if r.path == "" {
		return true
	}
	return path == r.path || strings.HasPrefix(path, r.path+"/")
}

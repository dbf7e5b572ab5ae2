package browser

import "strings"

// 页面内执行的脚本, 均为 rod Evaluate 要求的函数形式

const elementPathJS = `
const elementPath = (el) => {
  const parts = [];
  while (el && el.nodeType === 1 && el !== document.documentElement) {
    let part = el.tagName.toLowerCase();
    if (el.id) {
      part += '#' + el.id;
    } else if (el.classList.length) {
      part += '.' + Array.from(el.classList).join('.');
    }
    parts.unshift(part);
    el = el.parentElement;
  }
  return parts.join(' > ');
};`

// layoutScript 收集布局容器以及所有多子元素的 grid/flex 元素
var layoutScript = `() => {` + elementPathJS + `
  const containers = Array.from(document.querySelectorAll(
    'main, .main, .container, .content, .layout, .wrapper, .page, #root, #app'
  )).map((el) => {
    const rect = el.getBoundingClientRect();
    const style = window.getComputedStyle(el);
    return {
      tag: el.tagName.toLowerCase(),
      id: el.id || '',
      classes: Array.from(el.classList),
      width: Math.round(rect.width),
      height: Math.round(rect.height),
      layout: {
        display: style.display,
        position: style.position,
        float: style.cssFloat,
        width: style.width,
        height: style.height,
        flexDirection: style.flexDirection,
        gridTemplateColumns: style.gridTemplateColumns,
        gridTemplateRows: style.gridTemplateRows,
      },
      children: el.children.length,
      path: elementPath(el),
    };
  });

  const candidates = [];
  for (const el of document.querySelectorAll('body *')) {
    if (candidates.length >= 300) break;
    if (el.children.length < 2) continue;
    const style = window.getComputedStyle(el);
    if (!/(grid|flex)$/.test(style.display)) continue;
    candidates.push({
      element: elementPath(el),
      display: style.display,
      gridTemplateColumns: style.gridTemplateColumns,
      flexDirection: style.flexDirection,
      childWidths: Array.from(el.children).map((c) => Math.round(c.getBoundingClientRect().width)),
    });
  }

  return { containers, candidates };
}`

// componentScript 收集语义化组件及其位置
var componentScript = `() => {
  const selectors = '` + strings.Join(componentSelectors, ", ") + `';
  const classesOf = (el) => Array.from(el.classList);
  const components = [];
  for (const el of document.querySelectorAll(selectors)) {
    const rect = el.getBoundingClientRect();
    if (rect.width < 50 || rect.height < 50) continue;
    const style = window.getComputedStyle(el);
    const children = [];
    for (const child of el.children) {
      const r = child.getBoundingClientRect();
      if (r.width < 20 || r.height < 20) continue;
      children.push({
        type: child.tagName.toLowerCase(),
        classes: classesOf(child),
        id: child.id || '',
        size: { width: Math.round(r.width), height: Math.round(r.height) },
        hasChildren: child.children.length > 0,
      });
    }
    const text = (el.textContent || '').trim().replace(/\s+/g, ' ');
    components.push({
      type: el.tagName.toLowerCase(),
      classes: classesOf(el),
      id: el.id || '',
      children,
      size: { width: Math.round(rect.width), height: Math.round(rect.height) },
      position: { top: Math.round(rect.top + window.scrollY), left: Math.round(rect.left + window.scrollX) },
      isVisible: style.display !== 'none' && style.visibility !== 'hidden' && style.opacity !== '0',
      textContent: text.length > 100 ? text.slice(0, 100) + '...' : text,
    });
  }
  return {
    components,
    viewportHeight: window.innerHeight,
    pageHeight: Math.max(document.body.scrollHeight, document.documentElement.scrollHeight),
  };
}`

// componentSelectors 组件层级分析关注的元素
var componentSelectors = []string{
	"header", "nav", "main", "article", "section", "aside", "footer",
	".card", ".panel", ".widget", ".sidebar", ".menu", ".navbar",
	".container", ".wrapper", ".layout", ".grid", ".row",
	"#header", "#footer", "#main", "#content", "#sidebar",
}

// layoutSnapshotScript 当前视口下的菜单状态与布局类型
const layoutSnapshotScript = `() => {
  const visible = (el) => {
    const style = window.getComputedStyle(el);
    return style.display !== 'none' && style.visibility !== 'hidden' && el.offsetWidth > 0 && el.offsetHeight > 0;
  };

  let shown = 0;
  let hidden = 0;
  for (const el of document.querySelectorAll('body *')) {
    if (visible(el)) shown++; else hidden++;
  }

  let menuState = 'unknown';
  const nav = document.querySelector('nav, .nav, .navbar, .menu, header ul');
  const toggle = document.querySelector('.hamburger, .menu-toggle, .navbar-toggler, [aria-label="menu"], [aria-label="toggle menu"]');
  if (toggle && visible(toggle)) {
    menuState = 'hamburger';
  } else if (nav && window.getComputedStyle(nav).display !== 'none') {
    menuState = 'expanded';
  }

  let layoutType = 'single-column';
  if (document.body.offsetWidth <= 768) {
    layoutType = 'single-column-mobile';
  } else {
    const hasGrid = !!document.querySelector('[class*="grid"], [class*="row"], [style*="grid"]');
    const hasSidebar = !!document.querySelector('aside, .sidebar, #sidebar');
    if (hasGrid && hasSidebar) layoutType = 'multi-column-with-sidebar';
    else if (hasGrid) layoutType = 'multi-column';
    else if (hasSidebar) layoutType = 'content-with-sidebar';
  }

  return {
    windowWidth: window.innerWidth,
    windowHeight: window.innerHeight,
    elementsVisible: shown,
    elementsHidden: hidden,
    menuState,
    layoutType,
  };
}`

// clickableScript 视口内可见的可点击元素, 附带唯一选择器
const clickableScript = `() => {
  const query = 'a, button, input[type="submit"], input[type="button"], [role="button"], [onclick], .menu-item, .nav-item, .dropdown-item';
  const esc = (v) => (window.CSS && CSS.escape) ? CSS.escape(v) : v;
  const isUnique = (sel) => {
    try { return document.querySelectorAll(sel).length === 1; } catch (e) { return false; }
  };
  const uniqueSelector = (el) => {
    if (el.id) return '#' + esc(el.id);
    const tag = el.tagName.toLowerCase();
    const classes = Array.from(el.classList).map((c) => '.' + esc(c)).join('');
    if (classes && isUnique(classes)) return classes;
    if (classes && isUnique(tag + classes)) return tag + classes;
    const parent = el.parentElement;
    if (parent && parent.id) {
      const sel = '#' + esc(parent.id) + ' > ' + tag;
      if (isUnique(sel)) return sel;
    }
    const index = parent ? Array.prototype.indexOf.call(parent.children, el) + 1 : 1;
    return tag + ':nth-child(' + index + ')';
  };

  const results = [];
  for (const el of document.querySelectorAll(query)) {
    const rect = el.getBoundingClientRect();
    if (rect.width === 0 || rect.height === 0) continue;
    const style = window.getComputedStyle(el);
    if (style.display === 'none' || style.visibility === 'hidden' || style.opacity === '0') continue;
    if (rect.bottom < 0 || rect.right < 0 || rect.top > window.innerHeight || rect.left > window.innerWidth) continue;
    const text = (el.innerText || el.value || el.getAttribute('aria-label') || '').trim().replace(/\s+/g, ' ');
    results.push({
      tag: el.tagName.toLowerCase(),
      text: text.slice(0, 100),
      selector: uniqueSelector(el),
      id: el.id || '',
      class: el.getAttribute('class') || '',
      href: el.getAttribute('href') || '',
      type: el.getAttribute('type') || '',
      role: el.getAttribute('role') || '',
      position: { x: rect.x, y: rect.y, width: rect.width, height: rect.height },
    });
  }
  return results;
}`

const readyStateScript = `() => document.readyState`

const scrollToMiddleScript = `() => {
  window.scrollTo(0, document.body.scrollHeight / 2);
  return true;
}`

// backgroundImagesScript 样式表与行内样式里引用的背景图
const backgroundImagesScript = `() => {
  const urls = new Set();
  const collect = (text, base) => {
    if (!text) return;
    const pattern = /url\(\s*['"]?([^'")]+)['"]?\s*\)/g;
    let m;
    while ((m = pattern.exec(text)) !== null) {
      if (m[1].startsWith('data:')) continue;
      try { urls.add(new URL(m[1], base).href); } catch (e) {}
    }
  };
  for (const sheet of Array.from(document.styleSheets)) {
    let rules;
    try { rules = sheet.cssRules; } catch (e) { continue; }
    if (!rules) continue;
    for (const rule of Array.from(rules)) {
      if (!rule.style) continue;
      collect(rule.style.backgroundImage, sheet.href || document.baseURI);
      collect(rule.style.background, sheet.href || document.baseURI);
    }
  }
  for (const el of document.querySelectorAll('[style*="background"]')) {
    collect(el.getAttribute('style'), document.baseURI);
  }
  return Array.from(urls);
}`

// wrapUserScript 把调用方的函数体包装成可求值的函数
// DOM节点等无法按值返回的结果转为字符串
func wrapUserScript(body string) string {
	return `async function() {
  const __result = await (async function() {
` + body + `
  }).call(this);
  if (__result === undefined) return null;
  if ((typeof Node !== 'undefined' && __result instanceof Node) || __result === window) return String(__result);
  try { JSON.stringify(__result); return __result; } catch (e) { return String(__result); }
}`
}

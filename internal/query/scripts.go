package query

// resolveJS locates every plan step in the live DOM, stamps found elements
// with the ref attribute and returns one Match per step.
const resolveJS = `function (plan, attr) {
	const visible = el => !!(el && (el.offsetWidth || el.offsetHeight || el.getClientRects().length));
	const roles = {
		clickable: 'button, a, [role="button"], input[type="submit"], input[type="button"]',
		input: 'input, textarea, select',
		container: 'form, dialog, [role="dialog"], section, aside, div',
		any: '*',
	};
	const className = el => typeof el.className === 'string' ? el.className : '';
	const describe = (el, withText) => [
		el.id, el.getAttribute('name'), className(el), el.getAttribute('aria-label'),
		el.getAttribute('placeholder'), el.getAttribute('title'), el.getAttribute('type'),
		el.getAttribute('role'), withText ? (el.innerText || '').slice(0, 80) : '',
	].filter(Boolean).join(' ').toLowerCase();
	const escape = s => s.replace(/[.*+?^${}()|[\]\\]/g, '\\$&');
	const score = (el, words, withText) => {
		const text = describe(el, withText);
		return words.reduce((n, w) => new RegExp('(^|[^a-z])' + escape(w) + '([^a-z]|$)').test(text) ? n + 1 : n, 0);
	};
	const textOf = el => (el.innerText || el.value || '').trim().slice(0, 200);

	document.querySelectorAll('[' + attr + ']').forEach(el => el.removeAttribute(attr));

	const found = {};
	const results = [];
	for (const step of plan) {
		let scope = document;
		if (step.parent) {
			scope = found[step.parent];
			if (!scope) {
				results.push({path: step.path, found: false, text: ''});
				continue;
			}
		}
		let el = null;
		try {
			if (step.role === 'document') {
				el = document.body;
			} else if (step.kind === 'selector') {
				const all = Array.from(scope.querySelectorAll(step.hint));
				el = all.find(visible) || all[0] || null;
			} else if (step.kind === 'text') {
				const needle = step.hint.toLowerCase();
				const has = e => (e.innerText || '').toLowerCase().includes(needle);
				const hits = Array.from(scope.querySelectorAll('*')).filter(e => visible(e) && has(e));
				el = hits.find(e => !Array.from(e.children).some(has)) || null;
				if (el && el.closest(roles.clickable)) {
					el = el.closest(roles.clickable);
				}
			} else {
				const withText = step.role !== 'container';
				let best = 0;
				for (const c of scope.querySelectorAll(roles[step.role] || '*')) {
					if (!visible(c)) continue;
					const s = score(c, step.keywords, withText);
					if (s > best) {
						best = s;
						el = c;
					}
				}
			}
		} catch (e) {
			el = null;
		}
		if (el) {
			el.setAttribute(attr, step.path);
			found[step.path] = el;
		}
		results.push({path: step.path, found: !!el, text: el ? textOf(el) : ''});
	}
	return results;
}`

// tagJS stamps the elements matched by explicit selectors, keyed by path.
const tagJS = `function (selectors, attr) {
	const results = [];
	for (const [path, sel] of Object.entries(selectors)) {
		let el = null;
		try {
			el = document.querySelector(sel);
		} catch (e) {
			el = null;
		}
		if (el) {
			el.setAttribute(attr, path);
		}
		results.push({path: path, found: !!el, text: el ? (el.innerText || el.value || '').trim().slice(0, 200) : ''});
	}
	return results;
}`

// outlineJS returns a compact description of the visible interactive elements.
const outlineJS = `function (limit) {
	const visible = el => !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length);
	const out = [];
	const sel = 'a, button, input, select, textarea, form, dialog, [role], [aria-label], [id]';
	for (const el of document.querySelectorAll(sel)) {
		if (out.length >= limit) break;
		if (!visible(el)) continue;
		const attrs = [];
		for (const name of ['id', 'name', 'type', 'class', 'role', 'aria-label', 'placeholder', 'href', 'data-dtm']) {
			const v = el.getAttribute(name);
			if (v) attrs.push(name + '="' + v.slice(0, 60) + '"');
		}
		const text = (el.innerText || '').trim().replace(/\s+/g, ' ').slice(0, 60);
		out.push('<' + el.tagName.toLowerCase() + (attrs.length ? ' ' + attrs.join(' ') : '') + '>' + text);
	}
	return out.join('\n');
}`

// ClickTextJS stamps the innermost visible element containing the given text,
// preferring a clickable ancestor, and reports whether one was found.
const ClickTextJS = `function (needle, attr, ref) {
	const clickable = 'button, a, [role="button"], input[type="submit"], input[type="button"]';
	const lower = needle.toLowerCase();
	const visible = el => !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length);
	const has = e => (e.innerText || '').toLowerCase().includes(lower);
	const hits = Array.from(document.querySelectorAll('body *')).filter(e => visible(e) && has(e));
	let el = hits.find(e => !Array.from(e.children).some(has)) || null;
	if (!el) return false;
	el = el.closest(clickable) || el;
	el.setAttribute(attr, ref);
	return true;
}`

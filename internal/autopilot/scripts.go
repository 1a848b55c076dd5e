package autopilot

// JavaScript function declarations run through Frame.Evaluate (document is
// the frame's document) or Element.Call (this is the element).
const (
	jsRemoveAll = `function(sel) {
	const els = document.querySelectorAll(sel);
	els.forEach((el) => el.remove());
	return els.length;
}`

	jsOverflowVisible = `function(sel) {
	document.querySelectorAll(sel).forEach((el) => { el.style.overflow = "visible"; });
	return true;
}`

	jsCollectHrefs = `function(sel) {
	return Array.from(document.querySelectorAll(sel)).map((a) => a.href);
}`

	jsFrameRightDimmed = `function(sel) {
	const el = document.querySelector(sel);
	if (!el) return false;
	return parseFloat(getComputedStyle(el).opacity) < 1.0;
}`

	jsDisplayNone = `function() {
	return getComputedStyle(this).display === "none";
}`

	jsAnnotate = `function(sel) {
	const badge = (n) => {
		const d = document.createElement("div");
		d.textContent = String(n);
		d.style.position = "absolute";
		d.style.display = "inline-block";
		d.style.aspectRatio = "1";
		d.style.height = "22px";
		d.style.background = "hsl(210 70% 65%)";
		d.style.textAlign = "center";
		d.style.color = "white";
		d.style.fontFamily = "monospace";
		d.style.fontSize = "1.1rem";
		return d;
	};
	const els = this.querySelectorAll(sel);
	els.forEach((el, i) => {
		el.classList.add("input-id-" + i);
		const toggle = el.tagName === "INPUT" && (el.type === "checkbox" || el.type === "radio");
		if (toggle || el.dataset.autopilotBadge) return;
		const wrapper = document.createElement("span");
		wrapper.style.position = "relative";
		el.parentNode.insertBefore(wrapper, el);
		wrapper.appendChild(el);
		el.after(badge(i));
		el.dataset.autopilotBadge = "1";
	});
	return els.length;
}`

	jsExtract = `function(sel) {
	const label = (el) => {
		const gp = el.parentNode && el.parentNode.parentNode;
		return ((gp && gp.textContent) || "").trim();
	};
	return Array.from(this.querySelectorAll(sel)).map((el, i) => {
		el.classList.add("input-id-" + i);
		if (el.tagName === "SELECT") {
			const options = [];
			el.childNodes.forEach((n) => { if (n.textContent) options.push(n.textContent.trim()); });
			return { index: i, type: "select", options: options };
		}
		if (el.tagName === "INPUT" && el.type === "checkbox") return { index: i, type: "checkbox", label: label(el) };
		if (el.tagName === "INPUT" && el.type === "radio") return { index: i, type: "radio", label: label(el) };
		if (el.tagName === "TEXTAREA") return { index: i, type: "textarea" };
		return { index: i, type: "input" };
	});
}`

	jsOptionValue = `function(target) {
	for (const o of this.querySelectorAll("option")) {
		if ((o.textContent || "").trim() === target.trim()) return o.value;
	}
	return null;
}`

	jsTagDropContainer = `function(cls) {
	const col = this.closest(".catColumn");
	const drop = col && col.querySelector(".dropContainer");
	if (!drop) return false;
	drop.classList.add(cls);
	return true;
}`
)

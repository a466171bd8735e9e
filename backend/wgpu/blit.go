// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// swapFormat is the format of render targets and swapchain images.
const swapFormat = gputypes.TextureFormatRGBA8Unorm

// blitPipeline draws a render target into a swapchain image with a
// fullscreen triangle. The linear sampler scales the target to the
// swapchain size.
type blitPipeline struct {
	device     hal.Device
	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.RenderPipeline
	sampler    hal.Sampler
}

func newBlitPipeline(device hal.Device) (*blitPipeline, error) {
	p := &blitPipeline{device: device}
	if err := p.create(); err != nil {
		p.destroy()
		return nil, err
	}
	return p, nil
}

func (p *blitPipeline) create() error {
	shader, err := createBlitShader(p.device)
	if err != nil {
		return err
	}
	p.shader = shader

	// Binding 0: source texture. Binding 1: sampler.
	bindLayout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "ggframe_blit_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create blit bind group layout: %w", err)
	}
	p.bindLayout = bindLayout

	pipeLayout, err := p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "ggframe_blit_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create blit pipeline layout: %w", err)
	}
	p.pipeLayout = pipeLayout

	sampler, err := p.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "ggframe_blit_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create blit sampler: %w", err)
	}
	p.sampler = sampler

	pipeline, err := p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "ggframe_blit_pipeline",
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.shader,
			EntryPoint: "vs_main",
		},
		Fragment: &hal.FragmentState{
			Module:     p.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    swapFormat,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create blit pipeline: %w", err)
	}
	p.pipeline = pipeline
	return nil
}

// bindGroup binds view and the blit sampler.
func (p *blitPipeline) bindGroup(view hal.TextureView, label string) (hal.BindGroup, error) {
	bg, err := p.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  label,
		Layout: p.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.TextureViewBinding{
				TextureView: gputypes.TextureViewHandle(view.NativeHandle()),
			}},
			{Binding: 1, Resource: gputypes.SamplerBinding{
				Sampler: gputypes.SamplerHandle(p.sampler.NativeHandle()),
			}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create blit bind group: %w", err)
	}
	return bg, nil
}

// encode records the pass drawing src into dst. src must already be
// usable as a sampled texture and dst as a render attachment.
func (p *blitPipeline) encode(encoder hal.CommandEncoder, src hal.BindGroup, dst hal.TextureView) {
	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "ggframe_blit_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       dst,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 0},
		}},
	})
	rp.SetPipeline(p.pipeline)
	rp.SetBindGroup(0, src, nil)
	rp.Draw(3, 1, 0, 0)
	rp.End()
}

// destroy releases whatever create managed to build.
func (p *blitPipeline) destroy() {
	if p.pipeline != nil {
		p.device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.sampler != nil {
		p.device.DestroySampler(p.sampler)
		p.sampler = nil
	}
	if p.pipeLayout != nil {
		p.device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.bindLayout != nil {
		p.device.DestroyBindGroupLayout(p.bindLayout)
		p.bindLayout = nil
	}
	if p.shader != nil {
		p.device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}
